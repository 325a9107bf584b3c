// Package validation provides sanity checks for provider game records.
package validation

import (
	"errors"
	"strings"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
)

// Reasons a game is left out of the transform
var (
	ErrNoBookmakers   = errors.New("game has no bookmakers")
	ErrNoH2HMarket    = errors.New("first bookmaker has no h2h market")
	ErrOutcomeCount   = errors.New("h2h market must have exactly two outcomes")
	ErrInvalidOutcome = errors.New("h2h outcome has an empty name or zero price")
)

// CheckGame returns the head-to-head market of the game's first bookmaker,
// or the reason the game cannot be used. Later bookmakers are not consulted.
func CheckGame(g model.RawGame) (model.Bookmaker, model.Market, error) {
	if len(g.Bookmakers) == 0 {
		return model.Bookmaker{}, model.Market{}, ErrNoBookmakers
	}

	book := g.Bookmakers[0]
	market, ok := book.H2HMarket()
	if !ok {
		return book, model.Market{}, ErrNoH2HMarket
	}

	if err := CheckH2H(market); err != nil {
		return book, model.Market{}, err
	}
	return book, market, nil
}

// CheckH2H validates the two-outcome shape of a head-to-head market
func CheckH2H(m model.Market) error {
	if len(m.Outcomes) != 2 {
		return ErrOutcomeCount
	}
	a, b := m.Outcomes[0], m.Outcomes[1]
	if !ValidOutcome(a) || !ValidOutcome(b) {
		return ErrInvalidOutcome
	}
	return nil
}

// ValidOutcome reports whether an outcome has a team name and a usable price
func ValidOutcome(o model.Outcome) bool {
	return strings.TrimSpace(o.Name) != "" && o.Price != 0
}
