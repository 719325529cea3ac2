package apifootball

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
	"github.com/pola-png/prediction-engine/internal/platform/resilience"
	"github.com/pola-png/prediction-engine/internal/usecase"
)

// SourceName is the natural-key source identifier of this feed.
const SourceName = "apifootball"

var errAPIFootballTransient = crerr.New("api-football transient failure")

const defaultBaseURL = "https://v3.football.api-sports.io"

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client pulls the API-Football v3 fixtures feed, the fallback ingestion
// source when football-data.org is down.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	now            func() time.Time
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) Name() string { return SourceName }

type fixturesEnvelope struct {
	Response []json.RawMessage `json:"response"`
}

type fixturePayload struct {
	Fixture struct {
		ID     int64  `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short string `json:"short"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		Name   string `json:"name"`
		Season int    `json:"season"`
	} `json:"league"`
	Teams struct {
		Home struct {
			Name string `json:"name"`
			Logo string `json:"logo"`
		} `json:"home"`
		Away struct {
			Name string `json:"name"`
			Logo string `json:"logo"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

// FetchMatches pulls fixtures for yesterday, today and the coming week,
// one day per request as the provider requires.
func (c *Client) FetchMatches(ctx context.Context) ([]usecase.SourceRecord, error) {
	now := c.now().UTC()
	out := make([]usecase.SourceRecord, 0, 64)
	for offset := -1; offset <= 7; offset++ {
		day := now.AddDate(0, 0, offset).Format("2006-01-02")

		var envelope fixturesEnvelope
		if err := c.doJSON(ctx, "/fixtures", map[string]string{"date": day}, &envelope); err != nil {
			return nil, fmt.Errorf("fetch fixtures date=%s: %w", day, err)
		}
		for _, raw := range envelope.Response {
			out = append(out, usecase.SourceRecord(raw))
		}
	}
	return out, nil
}

func (c *Client) Normalize(rec usecase.SourceRecord) (usecase.MatchUpsert, bool, error) {
	var payload fixturePayload
	if err := sonic.Unmarshal(rec, &payload); err != nil {
		return usecase.MatchUpsert{}, false, fmt.Errorf("decode fixture record: %w", err)
	}
	if payload.Fixture.ID <= 0 || payload.Teams.Home.Name == "" || payload.Teams.Away.Name == "" {
		return usecase.MatchUpsert{}, false, nil
	}

	kickoff, err := time.Parse(time.RFC3339, payload.Fixture.Date)
	if err != nil {
		return usecase.MatchUpsert{}, false, fmt.Errorf("parse fixture date %q: %w", payload.Fixture.Date, err)
	}

	season := ""
	if payload.League.Season > 0 {
		season = strconv.Itoa(payload.League.Season)
	}

	return usecase.MatchUpsert{
		Source:       SourceName,
		ExternalID:   strconv.FormatInt(payload.Fixture.ID, 10),
		LeagueCode:   strings.TrimSpace(payload.League.Name),
		Season:       season,
		MatchDateUTC: kickoff.UTC(),
		Status:       match.NormalizeStatus(payload.Fixture.Status.Short),
		HomeTeam:     strings.TrimSpace(payload.Teams.Home.Name),
		AwayTeam:     strings.TrimSpace(payload.Teams.Away.Name),
		HomeLogoURL:  strings.TrimSpace(payload.Teams.Home.Logo),
		AwayLogoURL:  strings.TrimSpace(payload.Teams.Away.Logo),
		HomeGoals:    payload.Goals.Home,
		AwayGoals:    payload.Goals.Away,
	}, true, nil
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "api-football circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: fallback feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	raw, err := c.executeRequest(ctx, fullURL)
	if c.circuitEnabled {
		if err != nil && isTransient(err) {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	if err != nil {
		return err
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode feed payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-apisports-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errAPIFootballTransient, sanitizeSensitiveText(err.Error(), c.apiKey))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errAPIFootballTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("%w: feed status=%d body=%s", errAPIFootballTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("feed status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		delay := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("feed request failed")
	}
	c.logger.WarnContext(ctx, "api-football request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isTransient(err error) bool {
	return stderrors.Is(err, errAPIFootballTransient)
}

func abbreviateBody(raw []byte) string {
	const maxLen = 256
	text := strings.TrimSpace(string(raw))
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}

func sanitizeSensitiveText(value, key string) string {
	value = strings.TrimSpace(value)
	if key != "" {
		value = strings.ReplaceAll(value, key, "REDACTED")
	}
	return value
}
