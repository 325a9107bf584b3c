// Package briefing asks a text-generation service for a short matchup preview.
//
// The generator is fail-soft: every failure is turned into a message that
// can be shown to the user as-is.
package briefing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/probability"
)

// Displayable fallbacks
const (
	MsgNotConfigured = "AI briefing is not configured."
	MsgUnavailable   = "AI briefing is temporarily unavailable. Please try again later."
	MsgEmpty         = "AI briefing returned no content."
)

const systemPrompt = "You are a concise NBA betting analyst. Write a neutral three-sentence matchup preview. Do not give financial advice."

// Options configures a Generator
type Options struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Generator produces matchup briefings through a chat-completions endpoint
type Generator struct {
	url        string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *retryablehttp.Client
}

// New creates a Generator
func New(opts Options) *Generator {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	return &Generator{
		url:        opts.URL,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		timeout:    timeout,
		httpClient: rc,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate returns prose describing the matchup between a and b, or a
// displayable fallback message. It never returns an error.
func (g *Generator) Generate(ctx context.Context, a, b model.TeamView) string {
	if g.apiKey == "" || g.url == "" {
		return MsgNotConfigured
	}

	text, err := g.complete(ctx, BuildPrompt(a, b))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"team_a": a.ID,
			"team_b": b.ID,
		}).Warnf("Briefing generation failed: %v", err)
		return MsgUnavailable
	}
	if text == "" {
		return MsgEmpty
	}
	return text
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 300,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// BuildPrompt describes both teams and their market-implied chances
func BuildPrompt(a, b model.TeamView) string {
	odds := probability.ForTeams(a, b)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Preview the NBA matchup %s vs %s.\n", a.Name, b.Name)
	writeTeam(&sb, a, odds.Probabilities[a.ID])
	writeTeam(&sb, b, odds.Probabilities[b.ID])
	fmt.Fprintf(&sb, "Market view: %s\n", odds.Insight)
	return sb.String()
}

func writeTeam(sb *strings.Builder, v model.TeamView, winPct float64) {
	fmt.Fprintf(sb, "- %s: moneyline %+d, implied win %.1f%%, offensive rating %.1f, defensive rating %.1f, pace %.1f, momentum %s.\n",
		v.Name, v.Moneyline, winPct, v.Ratings.Offensive, v.Ratings.Defensive, v.Ratings.Pace, v.Labels.Momentum)
}
