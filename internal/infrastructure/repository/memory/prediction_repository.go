package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pola-png/prediction-engine/internal/domain/prediction"
)

type PredictionRepository struct {
	mu      sync.RWMutex
	byMatch map[string]prediction.Prediction
}

func NewPredictionRepository() *PredictionRepository {
	return &PredictionRepository{byMatch: make(map[string]prediction.Prediction)}
}

func (r *PredictionRepository) GetByMatchID(_ context.Context, matchID string) (prediction.Prediction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.byMatch[matchID]
	return item, ok, nil
}

func (r *PredictionRepository) Create(_ context.Context, item prediction.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byMatch[item.MatchID]; taken {
		return prediction.ErrAlreadyExists
	}
	r.byMatch[item.MatchID] = item
	return nil
}

func (r *PredictionRepository) ListByBucket(_ context.Context, bucket string, limit int) ([]prediction.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]prediction.Prediction, 0, len(r.byMatch))
	for _, item := range r.byMatch {
		if item.Outcomes.Bucket == bucket {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
