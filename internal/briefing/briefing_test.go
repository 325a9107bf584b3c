package briefing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
)

var (
	lakers = model.TeamView{
		ID: "losangeleslakers", Name: "Los Angeles Lakers", Moneyline: -150,
		Ratings:      model.Ratings{Offensive: 115.2, Defensive: 112.1, Pace: 100.3},
		Labels:       model.Labels{Momentum: "Hot"},
		UpcomingGame: &model.UpcomingGame{Opponent: "Phoenix Suns", Moneyline: -150, OpponentMoneyline: 130},
	}
	suns = model.TeamView{
		ID: "phoenixsuns", Name: "Phoenix Suns", Moneyline: 130,
		Labels:       model.Labels{Momentum: "Cold"},
		UpcomingGame: &model.UpcomingGame{Opponent: "Los Angeles Lakers", Moneyline: 130, OpponentMoneyline: -150},
	}
)

func TestGenerate_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Lakers look sharp.  "}}]}`))
	}))
	defer srv.Close()

	g := New(Options{URL: srv.URL, APIKey: "key", Model: "m"})
	text := g.Generate(context.Background(), lakers, suns)

	assert.Equal(t, "Lakers look sharp.", text)
	assert.Equal(t, "m", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Contains(t, got.Messages[1].Content, "Los Angeles Lakers vs Phoenix Suns")
}

func TestGenerate_NotConfigured(t *testing.T) {
	g := New(Options{URL: "http://unused.invalid"})
	assert.Equal(t, MsgNotConfigured, g.Generate(context.Background(), lakers, suns))
}

func TestGenerate_FailSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    string
	}{
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			want: MsgUnavailable,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>"))
			},
			want: MsgUnavailable,
		},
		{
			name: "no choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"choices":[]}`))
			},
			want: MsgEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			g := New(Options{URL: srv.URL, APIKey: "key"})
			assert.Equal(t, tt.want, g.Generate(context.Background(), lakers, suns))
		})
	}
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	g := New(Options{URL: srv.URL, APIKey: "key", Timeout: 5 * time.Second})
	assert.Equal(t, "ok", g.Generate(context.Background(), lakers, suns))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(lakers, suns)

	assert.Contains(t, prompt, "moneyline -150")
	assert.Contains(t, prompt, "moneyline +130")
	assert.Contains(t, prompt, "momentum Hot")
	assert.Contains(t, prompt, "Los Angeles Lakers are favored")
}
