// Package transform maps provider games into the per-team view model.
package transform

import (
	"github.com/sirupsen/logrus"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/validation"
)

// Transformer builds team views from raw games. Aside from the values its
// AnalyticsSource generates, the output depends only on the input.
type Transformer struct {
	analytics AnalyticsSource
}

// New creates a Transformer. A nil source falls back to MockAnalytics.
func New(analytics AnalyticsSource) *Transformer {
	if analytics == nil {
		analytics = NewMockAnalytics(nil)
	}
	return &Transformer{analytics: analytics}
}

// Transform returns one TeamView per team found in the head-to-head market
// of each game's first bookmaker.
//
// Games without a usable h2h market are skipped. When two games yield the
// same normalized team id the first one wins and later ones are ignored,
// including distinct names that normalize alike ("LA Team", "LATeam"),
// whether they appear in different games or in the same one.
func (t *Transformer) Transform(games []model.RawGame) model.TeamMap {
	teams := make(model.TeamMap)
	skipped := 0

	for _, g := range games {
		book, market, err := validation.CheckGame(g)
		if err != nil {
			skipped++
			logrus.WithFields(logrus.Fields{
				"game":   g.ID,
				"reason": err,
			}).Debug("Skipping game")
			continue
		}

		consensus := consensusByTeam(g)
		a, b := market.Outcomes[0], market.Outcomes[1]
		t.add(teams, g, book, a, b, consensus)
		t.add(teams, g, book, b, a, consensus)
	}

	logrus.WithFields(logrus.Fields{
		"games":   len(games),
		"skipped": skipped,
		"teams":   len(teams),
	}).Debug("Transformed odds")

	return teams
}

func (t *Transformer) add(teams model.TeamMap, g model.RawGame, book model.Bookmaker, team, opponent model.Outcome, consensus map[string]*model.Consensus) {
	id := model.NormalizeTeamID(team.Name)
	if _, exists := teams[id]; exists {
		return
	}

	view := model.TeamView{
		ID:        id,
		Name:      team.Name,
		Moneyline: team.Price,
		UpcomingGame: &model.UpcomingGame{
			Opponent:          opponent.Name,
			OpponentID:        model.NormalizeTeamID(opponent.Name),
			Moneyline:         team.Price,
			OpponentMoneyline: opponent.Price,
			CommenceTime:      g.CommenceTime,
			Bookmaker:         book.Title,
		},
		Consensus: consensus[id],
	}
	t.analytics.Populate(&view)

	teams[id] = view
}
