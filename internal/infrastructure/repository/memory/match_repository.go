package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pola-png/prediction-engine/internal/domain/match"
)

type MatchRepository struct {
	mu    sync.RWMutex
	byID  map[string]match.Match
	byKey map[match.NaturalKey]string
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{
		byID:  make(map[string]match.Match),
		byKey: make(map[match.NaturalKey]string),
	}
}

func (r *MatchRepository) GetByID(_ context.Context, id string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byID[id]
	return item, ok, nil
}

func (r *MatchRepository) GetByNaturalKey(_ context.Context, key match.NaturalKey) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[key]
	if !ok {
		return match.Match{}, false, nil
	}
	return r.byID[id], true, nil
}

func (r *MatchRepository) Create(_ context.Context, item match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byKey[item.NaturalKey()]; taken {
		return match.ErrDuplicateKey
	}
	r.byID[item.ID] = item
	r.byKey[item.NaturalKey()] = item.ID
	return nil
}

func (r *MatchRepository) Update(_ context.Context, item match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[item.ID]; !ok {
		return nil
	}
	r.byID[item.ID] = item
	return nil
}

func (r *MatchRepository) SetPredictionID(_ context.Context, matchID, predictionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byID[matchID]
	if !ok || item.PredictionID != "" {
		return nil
	}
	item.PredictionID = predictionID
	r.byID[matchID] = item
	return nil
}

func (r *MatchRepository) ListPendingPrediction(_ context.Context, now time.Time, limit int) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.collect(func(item match.Match) bool {
		return item.Status == match.StatusScheduled &&
			item.PredictionID == "" &&
			!item.MatchDateUTC.Before(now)
	})
	sortByDateAsc(out)
	return capList(out, limit), nil
}

func (r *MatchRepository) ListAwaitingResult(_ context.Context, now time.Time) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.collect(func(item match.Match) bool {
		if item.Status != match.StatusScheduled && item.Status != match.StatusInProgress {
			return false
		}
		return item.MatchDateUTC.Before(now)
	})
	sortByDateAsc(out)
	return out, nil
}

func (r *MatchRepository) ListFinishedWithPrediction(_ context.Context) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.collect(func(item match.Match) bool {
		return match.IsFinished(item.Status) && item.PredictionID != ""
	})
	sortByDateAsc(out)
	return out, nil
}

func (r *MatchRepository) ListFinished(_ context.Context, limit int) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.collect(func(item match.Match) bool {
		return match.IsFinished(item.Status)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].MatchDateUTC.After(out[j].MatchDateUTC) })
	return capList(out, limit), nil
}

func (r *MatchRepository) ListUpcoming(_ context.Context, now time.Time, limit int) ([]match.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := r.collect(func(item match.Match) bool {
		return item.Status == match.StatusScheduled && item.MatchDateUTC.After(now)
	})
	sortByDateAsc(out)
	return capList(out, limit), nil
}

func (r *MatchRepository) collect(keep func(match.Match) bool) []match.Match {
	out := make([]match.Match, 0, len(r.byID))
	for _, item := range r.byID {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func sortByDateAsc(items []match.Match) {
	sort.Slice(items, func(i, j int) bool { return items[i].MatchDateUTC.Before(items[j].MatchDateUTC) })
}

func capList(items []match.Match, limit int) []match.Match {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
