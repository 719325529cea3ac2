package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pola-png/prediction-engine/internal/domain/settlement"
)

type SettlementRepository struct {
	mu      sync.RWMutex
	byMatch map[string]settlement.Record
}

func NewSettlementRepository() *SettlementRepository {
	return &SettlementRepository{byMatch: make(map[string]settlement.Record)}
}

func (r *SettlementRepository) ExistsByMatchID(_ context.Context, matchID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byMatch[matchID]
	return ok, nil
}

func (r *SettlementRepository) Create(_ context.Context, item settlement.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byMatch[item.MatchID]; taken {
		return settlement.ErrAlreadySettled
	}
	r.byMatch[item.MatchID] = item
	return nil
}

func (r *SettlementRepository) ListRecent(_ context.Context, limit int) ([]settlement.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]settlement.Record, 0, len(r.byMatch))
	for _, item := range r.byMatch {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResolvedAt.After(out[j].ResolvedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
