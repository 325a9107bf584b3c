// Package fetch provides the client for the upstream odds provider.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/DannyKomjathy/sports-analytic-platform/internal/model"
	"github.com/DannyKomjathy/sports-analytic-platform/internal/otel"
)

// DefaultTimeout bounds a single upstream request
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept in UpstreamError
const maxErrorBody = 4 << 10

// Client defines the interface the request handler uses to reach the provider
type Client interface {
	// FetchOdds retrieves the upcoming games for the given query
	FetchOdds(ctx context.Context, q OddsQuery) ([]model.RawGame, error)
}

// OddsQuery selects what the provider returns. Values are passed verbatim.
type OddsQuery struct {
	Sport      string
	Regions    string
	Markets    string
	OddsFormat string
}

// Params returns the query as a flat map, used for cache keys
func (q OddsQuery) Params() map[string]string {
	return map[string]string{
		"sport":      q.Sport,
		"regions":    q.Regions,
		"markets":    q.Markets,
		"oddsFormat": q.OddsFormat,
	}
}

// QuotaObserver receives the provider's request quota after each response
type QuotaObserver func(remaining, used int)

// Options configures an OddsClient
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	OnQuota QuotaObserver
}

// OddsClient talks to an Odds API v4 compatible provider. It never retries.
type OddsClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *retryablehttp.Client
	onQuota    QuotaObserver
}

// NewOddsClient creates a new odds provider client
func NewOddsClient(opts Options) *OddsClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := newRetryClient(0)
	rc.CheckRetry = noRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &OddsClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		timeout:    timeout,
		httpClient: rc,
		onQuota:    opts.OnQuota,
	}
}

// FetchOdds retrieves upcoming games from the provider.
//
// A missing API key yields *ConfigError without touching the network.
// Deadline expiry yields *TimeoutError and a non-2xx answer *UpstreamError.
func (c *OddsClient) FetchOdds(ctx context.Context, q OddsQuery) ([]model.RawGame, error) {
	if c.apiKey == "" {
		return nil, &ConfigError{Field: "ODDS_API_KEY"}
	}
	if q.Sport == "" {
		return nil, &ConfigError{Field: "ODDS_SPORT"}
	}

	ctx, span := otel.Tracer().Start(ctx, "odds.fetch", trace.WithAttributes(
		attribute.String("odds.sport", q.Sport),
		attribute.String("odds.markets", q.Markets),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	games, err := c.do(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("odds.games", len(games)))
	return games, nil
}

func (c *OddsClient) do(ctx context.Context, q OddsQuery) ([]model.RawGame, error) {
	endpoint := fmt.Sprintf("%s/sports/%s/odds", c.baseURL, url.PathEscape(q.Sport))

	params := url.Values{}
	params.Set("apiKey", c.apiKey)
	setIfPresent(params, "regions", q.Regions)
	setIfPresent(params, "markets", q.Markets)
	setIfPresent(params, "oddsFormat", q.OddsFormat)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.WithField("sport", q.Sport).Debug("Fetching odds from provider")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if isTimeout(ctx, err) {
			return nil, &TimeoutError{Timeout: c.timeout, Err: err}
		}
		return nil, fmt.Errorf("error fetching odds: %w", redactURL(err, endpoint))
	}
	defer resp.Body.Close()

	c.observeQuota(resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body, resp.Status),
		}
	}

	var games []model.RawGame
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		if isTimeout(ctx, err) {
			return nil, &TimeoutError{Timeout: c.timeout, Err: err}
		}
		return nil, fmt.Errorf("error decoding odds response: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"sport": q.Sport,
		"games": len(games),
	}).Debug("Received odds from provider")
	return games, nil
}

func (c *OddsClient) observeQuota(h http.Header) {
	remainingRaw := h.Get("X-Requests-Remaining")
	if remainingRaw == "" {
		return
	}
	remaining := parseQuota(remainingRaw)
	used := parseQuota(h.Get("X-Requests-Used"))

	logrus.WithFields(logrus.Fields{
		"remaining": remaining,
		"used":      used,
	}).Debug("Odds API quota")

	if c.onQuota != nil {
		c.onQuota(remaining, used)
	}
}

// newRetryClient creates a new HTTP client with retry capabilities
func newRetryClient(retryMax int) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c
}

// noRetry is a CheckRetry policy that accepts every outcome as final
func noRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// redactURL strips the query string, which carries the API key, from url errors
func redactURL(err error, endpoint string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = endpoint
	}
	return err
}

// upstreamMessage prefers the provider's JSON message over the raw body
func upstreamMessage(body []byte, status string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return status
}

func parseQuota(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}

func setIfPresent(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
