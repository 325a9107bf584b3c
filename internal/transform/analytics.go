package transform

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
)

// Ranges of the mock analytics. Lower bounds are inclusive, upper bounds exclusive.
const (
	RatingMin = 110.0
	RatingMax = 120.0
	PaceMin   = 98.0
	PaceMax   = 103.0
	TrendMin  = 40.0
	TrendMax  = 60.0
	VolumeMin = 1000
	VolumeMax = 50000

	// TrendPoints is the length of the synthesized trend series
	TrendPoints = 7
)

// Label vocabularies used by the mock analytics
var (
	MomentumLabels  = []string{"Hot", "Steady", "Cold"}
	SentimentLabels = []string{"Bullish", "Neutral", "Bearish"}
	RiskLabels      = []string{"Low", "Medium", "High"}
)

// RandSource supplies pseudo-random values. *math/rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
	Intn(n int) int
}

// AnalyticsSource fills the display metrics of a team view. The structural
// fields (id, name, prices, opponent) are already set when it is called.
type AnalyticsSource interface {
	Populate(view *model.TeamView)
}

// MockAnalytics generates placeholder analytics. None of its values are
// derived from real statistics.
type MockAnalytics struct {
	mu  sync.Mutex
	rnd RandSource
}

// NewMockAnalytics creates a generator. A nil source is replaced by a
// time-seeded math/rand generator.
func NewMockAnalytics(rnd RandSource) *MockAnalytics {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockAnalytics{rnd: rnd}
}

// Populate fills trend, volume, ratings and labels with fresh values
func (m *MockAnalytics) Populate(view *model.TeamView) {
	m.mu.Lock()
	defer m.mu.Unlock()

	view.Trend = make([]model.TrendPoint, TrendPoints)
	for i := range view.Trend {
		view.Trend[i] = model.TrendPoint{
			Label: fmt.Sprintf("D%d", i-(TrendPoints-1)),
			Value: m.between(TrendMin, TrendMax),
		}
	}

	view.Volume = VolumeMin + m.rnd.Intn(VolumeMax-VolumeMin)

	off := m.between(RatingMin, RatingMax)
	def := m.between(RatingMin, RatingMax)
	view.Ratings = model.Ratings{
		Offensive: off,
		Defensive: def,
		Pace:      m.between(PaceMin, PaceMax),
		Net:       off - def,
	}

	view.Labels = model.Labels{
		Momentum:  m.pick(MomentumLabels),
		Sentiment: m.pick(SentimentLabels),
		Risk:      m.pick(RiskLabels),
	}
}

func (m *MockAnalytics) between(lo, hi float64) float64 {
	return lo + m.rnd.Float64()*(hi-lo)
}

func (m *MockAnalytics) pick(options []string) string {
	return options[m.rnd.Intn(len(options))]
}
