package memory

import (
	"context"
	"sync"

	"github.com/pola-png/prediction-engine/internal/domain/team"
)

type TeamRepository struct {
	mu     sync.RWMutex
	byID   map[string]team.Team
	byName map[string]string
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{
		byID:   make(map[string]team.Team),
		byName: make(map[string]string),
	}
}

func (r *TeamRepository) GetByName(_ context.Context, name string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return team.Team{}, false, nil
	}
	return r.byID[id], true, nil
}

func (r *TeamRepository) Create(_ context.Context, item team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byName[item.Name]; taken {
		return team.ErrNameTaken
	}
	r.byID[item.ID] = item
	r.byName[item.Name] = item.ID
	return nil
}

func (r *TeamRepository) SetLogoURL(_ context.Context, id, logoURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.byID[id]
	if !ok {
		return nil
	}
	item.LogoURL = logoURL
	r.byID[id] = item
	return nil
}
