// Package probability converts moneyline odds into normalized win probabilities.
package probability

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
)

// UnavailableInsight is returned when either side lacks odds
const UnavailableInsight = "Win probability data not available."

// Side is one team entering the calculation. A nil Moneyline means the
// team has no upcoming-game odds. Name is used in the insight sentence and
// falls back to ID when empty.
type Side struct {
	ID        string
	Name      string
	Moneyline *int
}

func (s Side) displayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Result maps each team id to its win percentage plus a display sentence.
// It marshals flat: {"<idA>": 62.3, "<idB>": 37.7, "insight": "..."}.
type Result struct {
	Probabilities map[string]float64
	Insight       string
}

// MarshalJSON flattens the probabilities next to the insight
func (r Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Probabilities)+1)
	for id, pct := range r.Probabilities {
		out[id] = pct
	}
	out["insight"] = r.Insight
	return json.Marshal(out)
}

// AmericanToImplied converts American odds to the raw implied probability
// in (0,1). +150 gives 0.4, -200 gives 0.667.
func AmericanToImplied(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}
	if american > 0 {
		return 100.0 / (float64(american) + 100.0), nil
	}
	neg := float64(-american)
	return neg / (neg + 100.0), nil
}

// ImpliedToAmerican converts a probability in (0,1) back to American odds
func ImpliedToAmerican(p float64) (int, error) {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("invalid probability: must be between 0 and 1")
	}
	if p > 0.5 {
		return int(math.Round(-100.0 * p / (1.0 - p))), nil
	}
	return int(math.Round(100.0 * (1.0 - p) / p)), nil
}

// Implied returns the vig-free win percentages of two sides. The raw
// implied probabilities are normalized so the two results sum to 100.
// Missing or invalid odds on either side produce an even split.
func Implied(a, b Side) Result {
	if a.Moneyline == nil || b.Moneyline == nil {
		return unavailable(a, b)
	}

	rawA, errA := AmericanToImplied(*a.Moneyline)
	rawB, errB := AmericanToImplied(*b.Moneyline)
	if errA != nil || errB != nil {
		return unavailable(a, b)
	}

	total := rawA + rawB
	finalA := rawA / total * 100
	finalB := rawB / total * 100

	return Result{
		Probabilities: probabilities(a.ID, finalA, b.ID, finalB),
		Insight:       insight(a, finalA, b, finalB),
	}
}

// ForTeams runs Implied on two team views using their upcoming-game prices
func ForTeams(a, b model.TeamView) Result {
	return Implied(sideOf(a), sideOf(b))
}

func sideOf(v model.TeamView) Side {
	s := Side{ID: v.ID, Name: v.Name}
	if v.UpcomingGame != nil {
		ml := v.UpcomingGame.Moneyline
		s.Moneyline = &ml
	}
	return s
}

func unavailable(a, b Side) Result {
	return Result{
		Probabilities: probabilities(a.ID, 50, b.ID, 50),
		Insight:       UnavailableInsight,
	}
}

func probabilities(idA string, pA float64, idB string, pB float64) map[string]float64 {
	return map[string]float64{idA: pA, idB: pB}
}

func insight(a Side, pA float64, b Side, pB float64) string {
	switch {
	case pA > 50:
		return fmt.Sprintf("%s are favored with a %.0f%% win probability.", a.displayName(), math.Round(pA))
	case pB > 50:
		return fmt.Sprintf("%s are favored with a %.0f%% win probability.", b.displayName(), math.Round(pB))
	default:
		return "The market sees this matchup as a coin flip."
	}
}
