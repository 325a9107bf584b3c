package transform

import (
	"sort"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/probability"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/validation"
)

// consensusByTeam computes, for every team in the game, the median price
// across all bookmakers quoting a valid h2h market. The median is taken in
// implied-probability space so mixed-sign prices average sensibly.
func consensusByTeam(g model.RawGame) map[string]*model.Consensus {
	probs := make(map[string][]float64)
	for _, book := range g.Bookmakers {
		market, ok := book.H2HMarket()
		if !ok || validation.CheckH2H(market) != nil {
			continue
		}
		if model.NormalizeTeamID(market.Outcomes[0].Name) == model.NormalizeTeamID(market.Outcomes[1].Name) {
			continue
		}
		for _, o := range market.Outcomes {
			p, err := probability.AmericanToImplied(o.Price)
			if err != nil {
				continue
			}
			id := model.NormalizeTeamID(o.Name)
			probs[id] = append(probs[id], p)
		}
	}

	out := make(map[string]*model.Consensus, len(probs))
	for id, ps := range probs {
		price, err := probability.ImpliedToAmerican(median(ps))
		if err != nil {
			continue
		}
		out[id] = &model.Consensus{Moneyline: price, Bookmakers: len(ps)}
	}
	return out
}

// median returns the middle value, averaging the two middle values of an
// even-length slice. The input is not modified.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
