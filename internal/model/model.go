// Package model defines the core data structures for the odds proxy.
package model

import (
	"strings"
	"time"
)

// MarketH2H is the provider's market key for head-to-head (moneyline) odds
const MarketH2H = "h2h"

// Outcome is a single side of a market as quoted by a bookmaker.
// Price uses the American moneyline convention.
type Outcome struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

// Market groups the outcomes a bookmaker quotes for one market type
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Bookmaker holds the markets quoted by a single sportsbook
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// RawGame is one upcoming event as reported by the odds provider.
// It only lives for the duration of a single request.
type RawGame struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// TeamView is the per-team view model served to the dashboard.
//
// Trend, Volume, Ratings and Labels are mock analytics. They are
// regenerated on every transform and never persisted.
type TeamView struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Moneyline    int           `json:"moneyline"`
	Trend        []TrendPoint  `json:"trend"`
	Volume       int           `json:"volume"`
	Ratings      Ratings       `json:"ratings"`
	Labels       Labels        `json:"labels"`
	UpcomingGame *UpcomingGame `json:"upcomingGame"`
	Consensus    *Consensus    `json:"consensus,omitempty"`
}

// UpcomingGame references the next opponent of a team
type UpcomingGame struct {
	Opponent          string    `json:"opponent"`
	OpponentID        string    `json:"opponentId"`
	Moneyline         int       `json:"moneyline"`
	OpponentMoneyline int       `json:"opponentMoneyline"`
	CommenceTime      time.Time `json:"commenceTime"`
	Bookmaker         string    `json:"bookmaker,omitempty"`
}

// TrendPoint is one sample of the synthesized price trend
type TrendPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Ratings are the synthesized quantitative team ratings
type Ratings struct {
	Offensive float64 `json:"offensive"`
	Defensive float64 `json:"defensive"`
	Pace      float64 `json:"pace"`
	Net       float64 `json:"net"`
}

// Labels are the synthesized qualitative team labels
type Labels struct {
	Momentum  string `json:"momentum"`
	Sentiment string `json:"sentiment"`
	Risk      string `json:"risk"`
}

// Consensus summarizes a team's price across every bookmaker quoting the game
type Consensus struct {
	Moneyline  int `json:"moneyline"`
	Bookmakers int `json:"bookmakers"`
}

// TeamMap is the transform output keyed by normalized team id
type TeamMap map[string]TeamView

// NormalizeTeamID lowercases a team name and strips every space.
// The mapping is lossy: "LA Team" and "LATeam" share an id.
func NormalizeTeamID(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}

// H2HMarket returns the head-to-head market of a bookmaker, if quoted
func (b Bookmaker) H2HMarket() (Market, bool) {
	for _, m := range b.Markets {
		if m.Key == MarketH2H {
			return m, true
		}
	}
	return Market{}, false
}
