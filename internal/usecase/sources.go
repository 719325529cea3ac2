package usecase

import (
	"context"
	"strings"
	"time"
)

// SourceRecord is one raw feed entry in the provider's own schema.
type SourceRecord []byte

// MatchUpsert is the provider-neutral shape every adapter normalizes into.
type MatchUpsert struct {
	Source       string
	ExternalID   string
	LeagueCode   string
	Season       string
	MatchDateUTC time.Time
	Status       string
	HomeTeam     string
	AwayTeam     string
	HomeLogoURL  string
	AwayLogoURL  string
	HomeGoals    *int
	AwayGoals    *int
}

// SourceAdapter hides one upstream feed behind a fetch plus a per-record
// normalizer. Normalize reports ok=false for records that lack the identity
// fields needed to store them; those are skipped without failing the run.
type SourceAdapter interface {
	Name() string
	FetchMatches(ctx context.Context) ([]SourceRecord, error)
	Normalize(rec SourceRecord) (MatchUpsert, bool, error)
}

// SourceRegistry resolves adapters by their feed name.
type SourceRegistry struct {
	adapters map[string]SourceAdapter
}

func NewSourceRegistry(adapters ...SourceAdapter) *SourceRegistry {
	reg := &SourceRegistry{adapters: make(map[string]SourceAdapter, len(adapters))}
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		reg.adapters[strings.ToLower(strings.TrimSpace(adapter.Name()))] = adapter
	}
	return reg
}

func (r *SourceRegistry) Get(name string) (SourceAdapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.adapters[strings.ToLower(strings.TrimSpace(name))]
	return adapter, ok
}
