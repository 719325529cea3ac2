package footballdata

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
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

const (
	// SourceName is the natural-key source identifier of this feed.
	SourceName = "footballdata"

	defaultBaseURL    = "https://api.football-data.org/v4"
	defaultWindowPast = 24 * time.Hour
	defaultWindowNext = 7 * 24 * time.Hour
)

var errFootballDataTransient = crerr.New("football-data transient failure")

var authTokenHeaderRegex = regexp.MustCompile(`(?i)x-auth-token[:=]\s*[^&\s"']+`)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Competitions   []string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client pulls the football-data.org v4 match feed, the primary ingestion
// source.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	competitions   []string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
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
		token:          strings.TrimSpace(cfg.Token),
		competitions:   cfg.Competitions,
		maxRetries:     cfg.MaxRetries,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
		now:            time.Now,
	}
}

func (c *Client) Name() string { return SourceName }

type matchesEnvelope struct {
	Matches []json.RawMessage `json:"matches"`
}

type matchPayload struct {
	ID      int64  `json:"id"`
	UTCDate string `json:"utcDate"`
	Status  string `json:"status"`
	Season  struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"season"`
	Competition struct {
		Code string `json:"code"`
	} `json:"competition"`
	HomeTeam struct {
		Name  string `json:"name"`
		Crest string `json:"crest"`
	} `json:"homeTeam"`
	AwayTeam struct {
		Name  string `json:"name"`
		Crest string `json:"crest"`
	} `json:"awayTeam"`
	Score struct {
		FullTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
	} `json:"score"`
}

// FetchMatches pulls the match window around now: yesterday through the
// next week, which covers both result polling and upcoming fixtures.
func (c *Client) FetchMatches(ctx context.Context) ([]usecase.SourceRecord, error) {
	now := c.now().UTC()
	query := map[string]string{
		"dateFrom": now.Add(-defaultWindowPast).Format("2006-01-02"),
		"dateTo":   now.Add(defaultWindowNext).Format("2006-01-02"),
	}
	if len(c.competitions) > 0 {
		query["competitions"] = strings.Join(c.competitions, ",")
	}

	var envelope matchesEnvelope
	if err := c.doJSON(ctx, "/matches", query, &envelope); err != nil {
		return nil, fmt.Errorf("fetch matches: %w", err)
	}

	out := make([]usecase.SourceRecord, 0, len(envelope.Matches))
	for _, raw := range envelope.Matches {
		out = append(out, usecase.SourceRecord(raw))
	}
	return out, nil
}

func (c *Client) Normalize(rec usecase.SourceRecord) (usecase.MatchUpsert, bool, error) {
	var payload matchPayload
	if err := sonic.Unmarshal(rec, &payload); err != nil {
		return usecase.MatchUpsert{}, false, fmt.Errorf("decode match record: %w", err)
	}
	if payload.ID <= 0 || payload.HomeTeam.Name == "" || payload.AwayTeam.Name == "" {
		return usecase.MatchUpsert{}, false, nil
	}

	kickoff, err := time.Parse(time.RFC3339, payload.UTCDate)
	if err != nil {
		return usecase.MatchUpsert{}, false, fmt.Errorf("parse match date %q: %w", payload.UTCDate, err)
	}

	return usecase.MatchUpsert{
		Source:       SourceName,
		ExternalID:   strconv.FormatInt(payload.ID, 10),
		LeagueCode:   payload.Competition.Code,
		Season:       seasonLabel(payload.Season.StartDate, payload.Season.EndDate),
		MatchDateUTC: kickoff.UTC(),
		Status:       match.NormalizeStatus(payload.Status),
		HomeTeam:     strings.TrimSpace(payload.HomeTeam.Name),
		AwayTeam:     strings.TrimSpace(payload.AwayTeam.Name),
		HomeLogoURL:  strings.TrimSpace(payload.HomeTeam.Crest),
		AwayLogoURL:  strings.TrimSpace(payload.AwayTeam.Crest),
		HomeGoals:    payload.Score.FullTime.Home,
		AwayGoals:    payload.Score.FullTime.Away,
	}, true, nil
}

func seasonLabel(startDate, endDate string) string {
	startYear := yearOf(startDate)
	endYear := yearOf(endDate)
	switch {
	case startYear == "" || startYear == endYear:
		return startYear
	case endYear == "":
		return startYear
	default:
		return startYear + "-" + endYear[2:]
	}
}

func yearOf(date string) string {
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "football-data circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
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

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && isTransient(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
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
		if c.token != "" {
			req.Header.Set("X-Auth-Token", c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errFootballDataTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 6<<20))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errFootballDataTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: feed status=%d body=%s", errFootballDataTransient, resp.StatusCode, abbreviateBody(raw))
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
	c.logger.WarnContext(ctx, "football-data request failed", "url", fullURL, "error", lastErr)
	return nil, lastErr
}

func isTransient(err error) bool {
	return stderrors.Is(err, errFootballDataTransient)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	const maxLen = 256
	text := strings.TrimSpace(string(raw))
	if len(text) > maxLen {
		return text[:maxLen] + "..."
	}
	return text
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return authTokenHeaderRegex.ReplaceAllString(value, "X-Auth-Token: REDACTED")
}
