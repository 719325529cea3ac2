package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected HTTPAddr: %q", cfg.HTTPAddr)
	}
	if cfg.FootballDataBaseURL != "https://api.football-data.org/v4" {
		t.Fatalf("unexpected FootballDataBaseURL: %q", cfg.FootballDataBaseURL)
	}
	if cfg.APIFootballBaseURL != "https://v3.football.api-sports.io" {
		t.Fatalf("unexpected APIFootballBaseURL: %q", cfg.APIFootballBaseURL)
	}
	if cfg.PredictionBatchSize != 10 {
		t.Fatalf("unexpected PredictionBatchSize: %d", cfg.PredictionBatchSize)
	}
	if cfg.PredictionVersion != "v1" {
		t.Fatalf("unexpected PredictionVersion: %q", cfg.PredictionVersion)
	}
	if cfg.SchedulerEnabled {
		t.Fatalf("expected SchedulerEnabled=false by default")
	}
	if cfg.SchedulerCron != "0 */6 * * *" {
		t.Fatalf("unexpected SchedulerCron: %q", cfg.SchedulerCron)
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_ProdRequiresCronSecret(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("CRON_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when APP_ENV=prod without CRON_SECRET")
	}

	t.Setenv("CRON_SECRET", "super-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CronSecret != "super-secret" {
		t.Fatalf("unexpected CronSecret")
	}
}

func TestLoad_SourceConfigParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("FOOTBALLDATA_TOKEN", "fd-token")
	t.Setenv("FOOTBALLDATA_COMPETITIONS", "PL, PD ,SA")
	t.Setenv("FOOTBALLDATA_TIMEOUT", "5s")
	t.Setenv("ARCHIVE_BASE_URL", "https://raw.githubusercontent.com/openfootball/football.json/master")
	t.Setenv("ARCHIVE_PAGES", "2024-25/en.1.json,2023-24/en.1.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.FootballDataToken != "fd-token" {
		t.Fatalf("unexpected FootballDataToken")
	}
	if len(cfg.FootballDataCompetitions) != 3 || cfg.FootballDataCompetitions[1] != "PD" {
		t.Fatalf("unexpected FootballDataCompetitions: %v", cfg.FootballDataCompetitions)
	}
	if cfg.FootballDataTimeout != 5*time.Second {
		t.Fatalf("unexpected FootballDataTimeout: %s", cfg.FootballDataTimeout)
	}
	if len(cfg.ArchivePages) != 2 {
		t.Fatalf("unexpected ArchivePages: %v", cfg.ArchivePages)
	}
}

func TestLoad_InvalidDurations(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("AI_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid AI_TIMEOUT")
	}
}
