package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/crowdfund/internal/model"
	"github.com/nimasrn/crowdfund/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSettingsNotFound = errors.New("platform settings not saved yet")

type SettingsRepository struct {
	*pg.DB
}

func NewSettingsRepository(db *pg.DB) *SettingsRepository {
	return &SettingsRepository{
		db,
	}
}

func (r *SettingsRepository) Get(ctx context.Context) (*model.PlatformSettings, error) {
	var entity SettingsEntity
	if err := r.Read(ctx).Where("id = ?", settingsRowID).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return toSettingsModel(&entity)
}

// Save upserts the single settings row.
func (r *SettingsRepository) Save(ctx context.Context, s *model.PlatformSettings) (*model.PlatformSettings, error) {
	entity, err := toSettingsEntity(s)
	if err != nil {
		return nil, err
	}

	err = r.Write(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"site_name", "support_email", "require_campaign_approval", "require_kyc_for_campaigns",
			"min_donation", "platform_fee_bps", "home_content", "updated_at",
		}),
	}).Create(entity).Error
	if err != nil {
		return nil, err
	}
	return r.Get(ctx)
}
