package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/panjf2000/ants/v2"

	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
	"github.com/pola-png/prediction-engine/internal/usecase"
)

// SourceName is the natural-key source identifier of the historical archive.
const SourceName = "archive"

const defaultConcurrency = 4

type ClientConfig struct {
	HTTPClient  *http.Client
	BaseURL     string
	Pages       []string
	Concurrency int
	Timeout     time.Duration
	Logger      *logging.Logger
}

// Client reads football.json season files from a static host. The archive
// only backfills finished matches, so there is no token and no rate limit;
// pages are fetched through a small worker pool.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	pages       []string
	concurrency int
	logger      *logging.Logger
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
		httpClient.Timeout = 30 * time.Second
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		pages:       cfg.Pages,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (c *Client) Name() string { return SourceName }

type seasonFile struct {
	Name    string `json:"name"`
	Matches []struct {
		Date  string `json:"date"`
		Time  string `json:"time"`
		Team1 string `json:"team1"`
		Team2 string `json:"team2"`
		Score struct {
			FT []int `json:"ft"`
		} `json:"score"`
	} `json:"matches"`
}

// archiveRecord is the self-contained row handed to Normalize; season files
// carry no match ids, so the page path rides along to build one.
type archiveRecord struct {
	Page      string `json:"page"`
	Season    string `json:"season"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	HomeTeam  string `json:"homeTeam"`
	AwayTeam  string `json:"awayTeam"`
	HomeGoals *int   `json:"homeGoals"`
	AwayGoals *int   `json:"awayGoals"`
}

func (c *Client) FetchMatches(ctx context.Context) ([]usecase.SourceRecord, error) {
	if c.baseURL == "" || len(c.pages) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(c.concurrency)
	if err != nil {
		return nil, fmt.Errorf("create archive fetch pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		records []usecase.SourceRecord
	)
	for _, page := range c.pages {
		page := page
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			pageRecords, err := c.fetchPage(ctx, page)
			if err != nil {
				// One missing season file only costs its own rows.
				c.logger.WarnContext(ctx, "archive page fetch failed", "page", page, "error", err)
				return
			}
			mu.Lock()
			records = append(records, pageRecords...)
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			return nil, fmt.Errorf("submit archive page fetch: %w", submitErr)
		}
	}
	wg.Wait()

	return records, nil
}

func (c *Client) fetchPage(ctx context.Context, page string) ([]usecase.SourceRecord, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(page, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("archive status=%d", resp.StatusCode)
	}

	var season seasonFile
	if err := sonic.Unmarshal(raw, &season); err != nil {
		return nil, fmt.Errorf("decode season file: %w", err)
	}

	out := make([]usecase.SourceRecord, 0, len(season.Matches))
	for _, item := range season.Matches {
		record := archiveRecord{
			Page:     page,
			Season:   season.Name,
			Date:     item.Date,
			Time:     item.Time,
			HomeTeam: item.Team1,
			AwayTeam: item.Team2,
		}
		if len(item.Score.FT) == 2 {
			home, away := item.Score.FT[0], item.Score.FT[1]
			record.HomeGoals, record.AwayGoals = &home, &away
		}
		raw, err := sonic.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encode archive record: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func (c *Client) Normalize(rec usecase.SourceRecord) (usecase.MatchUpsert, bool, error) {
	var record archiveRecord
	if err := sonic.Unmarshal(rec, &record); err != nil {
		return usecase.MatchUpsert{}, false, fmt.Errorf("decode archive record: %w", err)
	}
	if record.Date == "" || record.HomeTeam == "" || record.AwayTeam == "" {
		return usecase.MatchUpsert{}, false, nil
	}
	// Only completed rows are worth backfilling.
	if record.HomeGoals == nil || record.AwayGoals == nil {
		return usecase.MatchUpsert{}, false, nil
	}

	kickoff, err := parseArchiveDate(record.Date, record.Time)
	if err != nil {
		return usecase.MatchUpsert{}, false, err
	}

	return usecase.MatchUpsert{
		Source:       SourceName,
		ExternalID:   record.Date + "|" + record.HomeTeam + "|" + record.AwayTeam,
		LeagueCode:   record.Season,
		MatchDateUTC: kickoff,
		Status:       match.StatusFinished,
		HomeTeam:     strings.TrimSpace(record.HomeTeam),
		AwayTeam:     strings.TrimSpace(record.AwayTeam),
		HomeGoals:    record.HomeGoals,
		AwayGoals:    record.AwayGoals,
	}, true, nil
}

func parseArchiveDate(date, clock string) (time.Time, error) {
	if clock != "" {
		parsed, err := time.Parse("2006-01-02 15:04", date+" "+clock)
		if err == nil {
			return parsed.UTC(), nil
		}
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse archive date %q: %w", date, err)
	}
	return parsed.UTC(), nil
}
