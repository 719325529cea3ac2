package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"github.com/pola-png/prediction-engine/external/apifootball"
	"github.com/pola-png/prediction-engine/external/archive"
	"github.com/pola-png/prediction-engine/external/footballdata"
	"github.com/pola-png/prediction-engine/external/textgen"
	"github.com/pola-png/prediction-engine/internal/config"
	"github.com/pola-png/prediction-engine/internal/domain/match"
	"github.com/pola-png/prediction-engine/internal/domain/prediction"
	"github.com/pola-png/prediction-engine/internal/domain/settlement"
	"github.com/pola-png/prediction-engine/internal/domain/team"
	"github.com/pola-png/prediction-engine/internal/infrastructure/repository/memory"
	"github.com/pola-png/prediction-engine/internal/infrastructure/repository/postgres"
	"github.com/pola-png/prediction-engine/internal/interfaces/httpapi"
	idgen "github.com/pola-png/prediction-engine/internal/platform/id"
	"github.com/pola-png/prediction-engine/internal/platform/logging"
	"github.com/pola-png/prediction-engine/internal/platform/resilience"
	"github.com/pola-png/prediction-engine/internal/usecase"
)

// App bundles the HTTP server with the resources it owns.
type App struct {
	Server    *http.Server
	DB        *sqlx.DB
	Pipeline  *usecase.PipelineService
	scheduler *pipelineScheduler
	logger    *logging.Logger
}

type repositories struct {
	teams       team.Repository
	matches     match.Repository
	predictions prediction.Repository
	settlements settlement.Repository
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	var db *sqlx.DB
	var repos repositories
	if strings.TrimSpace(cfg.DBURL) == "" {
		logger.Warn("DB_URL is empty, using in-memory repositories")
		repos = repositories{
			teams:       memory.NewTeamRepository(),
			matches:     memory.NewMatchRepository(),
			predictions: memory.NewPredictionRepository(),
			settlements: memory.NewSettlementRepository(),
		}
	} else {
		opened, err := openDatabase(cfg, logger)
		if err != nil {
			return nil, err
		}
		db = opened
		repos = repositories{
			teams:       postgres.NewTeamRepository(db),
			matches:     postgres.NewMatchRepository(db),
			predictions: postgres.NewPredictionRepository(db),
			settlements: postgres.NewSettlementRepository(db),
		}
	}

	ids := idgen.NewRandomGenerator()

	teamSvc := usecase.NewTeamService(repos.teams, ids)
	matchSvc := usecase.NewMatchService(repos.matches, ids)

	primary := footballdata.NewClient(footballdata.ClientConfig{
		BaseURL:      cfg.FootballDataBaseURL,
		Token:        cfg.FootballDataToken,
		Competitions: cfg.FootballDataCompetitions,
		Timeout:      cfg.FootballDataTimeout,
		MaxRetries:   cfg.FootballDataMaxRetries,
		Logger:       logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FootballDataCircuitEnabled,
			FailureThreshold: cfg.FootballDataCircuitFailureCount,
			OpenTimeout:      cfg.FootballDataCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FootballDataCircuitHalfOpenMaxReq,
		},
	})

	secondary := apifootball.NewClient(apifootball.ClientConfig{
		BaseURL:    cfg.APIFootballBaseURL,
		APIKey:     cfg.APIFootballKey,
		Timeout:    cfg.APIFootballTimeout,
		MaxRetries: cfg.APIFootballMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.APIFootballCircuitEnabled,
			FailureThreshold: cfg.APIFootballCircuitFailureCount,
			OpenTimeout:      cfg.APIFootballCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.APIFootballCircuitHalfOpenMaxReq,
		},
	})

	var archiveAdapter usecase.SourceAdapter
	if strings.TrimSpace(cfg.ArchiveBaseURL) != "" && len(cfg.ArchivePages) > 0 {
		archiveAdapter = archive.NewClient(archive.ClientConfig{
			BaseURL:     cfg.ArchiveBaseURL,
			Pages:       cfg.ArchivePages,
			Concurrency: cfg.ArchiveConcurrency,
			Timeout:     cfg.ArchiveTimeout,
			Logger:      logger,
		})
	}

	ingestionSvc := usecase.NewIngestionService(teamSvc, matchSvc, repos.matches, primary, secondary, archiveAdapter, logger)

	completer := textgen.NewClient(textgen.ClientConfig{
		APIKey:      cfg.AIAPIKey,
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		Temperature: float32(cfg.AITemperature),
		Timeout:     cfg.AITimeout,
		Logger:      logger,
	})

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.AIRequestsPerMinute)), 1)

	predictionSvc := usecase.NewPredictionService(
		repos.predictions,
		repos.matches,
		matchSvc,
		completer,
		limiter,
		ids,
		usecase.PredictionConfig{
			BatchSize:    cfg.PredictionBatchSize,
			HistoryLimit: cfg.PredictionHistoryLimit,
			MaxAttempts:  cfg.PredictionMaxAttempts,
			Version:      cfg.PredictionVersion,
		},
		logger,
	)

	settlementSvc := usecase.NewSettlementService(repos.matches, repos.predictions, repos.settlements, ids, logger)
	pipelineSvc := usecase.NewPipelineService(ingestionSvc, predictionSvc, settlementSvc, logger)

	handler := httpapi.NewHandler(matchSvc, predictionSvc, settlementSvc, ingestionSvc, pipelineSvc, logger)
	router := httpapi.NewRouter(handler, logger, cfg.CORSAllowedOrigins, cfg.CronSecret)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	application := &App{
		Server:   server,
		DB:       db,
		Pipeline: pipelineSvc,
		logger:   logger,
	}

	if cfg.SchedulerEnabled {
		scheduler, err := newPipelineScheduler(cfg.SchedulerCron, pipelineSvc, logger)
		if err != nil {
			return nil, err
		}
		application.scheduler = scheduler
	}

	return application, nil
}

// StartScheduler begins periodic pipeline runs when scheduling is enabled.
func (a *App) StartScheduler() {
	if a.scheduler == nil {
		return
	}
	a.scheduler.Start()
}

// Shutdown stops the scheduler, drains the HTTP server and closes the
// database connection.
func (a *App) Shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop(ctx)
	}

	if err := a.Server.Shutdown(ctx); err != nil {
		return err
	}

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}

	return nil
}
