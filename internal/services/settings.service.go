package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/internal/repository"
	"github.com/nimasrn/crowdfund/pkg/logger"
)

const (
	settingsCacheKey = "settings:platform"
	settingsCacheTTL = 10 * time.Minute
)

type SettingsRepository interface {
	Get(ctx context.Context) (*model.PlatformSettings, error)
	Save(ctx context.Context, s *model.PlatformSettings) (*model.PlatformSettings, error)
}

// Cache is the subset of the Redis adapter used for read-through caching.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Del(key string) error
}

type SettingsService struct {
	repo     SettingsRepository
	cache    Cache
	currency string
}

func NewSettingsService(repo SettingsRepository, cache Cache, currency string) *SettingsService {
	return &SettingsService{
		repo:     repo,
		cache:    cache,
		currency: currency,
	}
}

// Get returns the settings row, the defaults when none was saved yet.
func (s *SettingsService) Get(ctx context.Context) (*model.PlatformSettings, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(settingsCacheKey); err == nil {
			var cached model.PlatformSettings
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrSettingsNotFound) {
			return nil, fmt.Errorf("load settings: %w", err)
		}
		settings = model.DefaultSettings()
	}

	s.store(settings)
	return settings, nil
}

func (s *SettingsService) Public(ctx context.Context) (*model.PublicSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return settings.Public(s.currency), nil
}

func (s *SettingsService) Update(ctx context.Context, req *model.PlatformSettings) (*model.PlatformSettings, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Del(settingsCacheKey); err != nil {
			logger.Warn("failed to invalidate settings cache", "error", err)
		}
	}
	logger.Info("platform settings updated", "site_name", saved.SiteName)
	return saved, nil
}

func (s *SettingsService) store(settings *model.PlatformSettings) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.cache.Set(settingsCacheKey, raw, settingsCacheTTL); err != nil {
		logger.Warn("failed to cache settings", "error", err)
	}
}
