package app

import (
	"context"
	"encoding/json"

	"github.com/Guilhem-Bonnet/daylive/internal/domain"
	"github.com/Guilhem-Bonnet/daylive/internal/ports"
)

type SettingsService struct {
	repo ports.SettingsRepository
	bus  ports.EventBus
}

func NewSettingsService(repo ports.SettingsRepository, bus ports.EventBus) *SettingsService {
	return &SettingsService{repo: repo, bus: bus}
}

func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	return settings.Normalize(), nil
}

// Put: les nouveaux réglages valent pour les sessions ouvertes ensuite,
// les sessions existantes gardent les leurs.
func (s *SettingsService) Put(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	updated, err := s.repo.Put(ctx, settings.Normalize())
	if err != nil {
		return domain.Settings{}, err
	}
	if s.bus != nil {
		if b, err := json.Marshal(updated); err == nil {
			s.bus.Publish(ports.TopicSettingsUpdated, b)
		}
	}
	return updated, nil
}
