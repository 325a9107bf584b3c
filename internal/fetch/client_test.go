package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOdds = `[{
	"id": "e1",
	"sport_key": "basketball_nba",
	"commence_time": "2024-01-05T00:10:00Z",
	"home_team": "Boston Celtics",
	"away_team": "Miami Heat",
	"bookmakers": [{"key": "fanduel", "title": "FanDuel", "markets": [
		{"key": "h2h", "outcomes": [
			{"name": "Boston Celtics", "price": -250},
			{"name": "Miami Heat", "price": 205}
		]}
	]}]
}]`

var defaultQuery = OddsQuery{Sport: "basketball_nba", Regions: "us", Markets: "h2h", OddsFormat: "american"}

func TestFetchOdds_Success(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("X-Requests-Remaining", "480")
		w.Header().Set("X-Requests-Used", "20")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleOdds))
	}))
	defer srv.Close()

	var remaining, used int
	client := NewOddsClient(Options{
		BaseURL: srv.URL,
		APIKey:  "key",
		OnQuota: func(r, u int) { remaining, used = r, u },
	})

	games, err := client.FetchOdds(context.Background(), defaultQuery)
	require.NoError(t, err)
	require.Len(t, games, 1)

	assert.Equal(t, "/sports/basketball_nba/odds", gotPath)
	assert.Contains(t, gotQuery, "apiKey=key")
	assert.Contains(t, gotQuery, "regions=us")
	assert.Contains(t, gotQuery, "markets=h2h")
	assert.Contains(t, gotQuery, "oddsFormat=american")
	assert.Equal(t, 480, remaining)
	assert.Equal(t, 20, used)
	assert.Equal(t, "Miami Heat", games[0].AwayTeam)
}

func TestFetchOdds_MissingAPIKeyNeverCallsUpstream(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	client := NewOddsClient(Options{BaseURL: srv.URL})
	_, err := client.FetchOdds(context.Background(), defaultQuery)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "ODDS_API_KEY", cfgErr.Field)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestFetchOdds_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := NewOddsClient(Options{BaseURL: srv.URL, APIKey: "key", Timeout: 50 * time.Millisecond})
	_, err := client.FetchOdds(context.Background(), defaultQuery)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr), "got %v", err)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
}

func TestFetchOdds_UpstreamErrorNotRetried(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		temporary   bool
	}{
		{
			name:        "json message",
			status:      http.StatusUnauthorized,
			body:        `{"message":"API key is not valid","error_code":"INVALID_KEY"}`,
			wantMessage: "API key is not valid",
		},
		{
			name:        "plain body",
			status:      http.StatusBadGateway,
			body:        "bad gateway",
			wantMessage: "bad gateway",
			temporary:   true,
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			wantMessage: "500 Internal Server Error",
			temporary:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewOddsClient(Options{BaseURL: srv.URL, APIKey: "key"})
			_, err := client.FetchOdds(context.Background(), defaultQuery)

			var upErr *UpstreamError
			require.True(t, errors.As(err, &upErr), "got %v", err)
			assert.Equal(t, tt.status, upErr.StatusCode)
			assert.Equal(t, tt.wantMessage, upErr.Message)
			assert.Equal(t, tt.temporary, upErr.Temporary())
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "odds client must not retry")
		})
	}
}

func TestFetchOdds_TransportErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewOddsClient(Options{BaseURL: url, APIKey: "super-secret"})
	_, err := client.FetchOdds(context.Background(), defaultQuery)

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret")

	var timeoutErr *TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
}

func TestFetchOdds_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"`))
	}))
	defer srv.Close()

	client := NewOddsClient(Options{BaseURL: srv.URL, APIKey: "key"})
	_, err := client.FetchOdds(context.Background(), defaultQuery)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding")
}

func TestOddsQueryParams(t *testing.T) {
	assert.Equal(t, map[string]string{
		"sport":      "basketball_nba",
		"regions":    "us",
		"markets":    "h2h",
		"oddsFormat": "american",
	}, defaultQuery.Params())
}
