package db

import (
	"context"
	"errors"

	"github.com/terraincognita07/daywindow/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PreferencesRepository struct {
	database *gorm.DB
}

func NewPreferencesRepository(database *gorm.DB) *PreferencesRepository {
	return &PreferencesRepository{database: database}
}

func (repo *PreferencesRepository) FindByUserID(ctx context.Context, userID uint) (models.UserPreferences, bool, error) {
	var preferences models.UserPreferences
	err := repo.database.WithContext(ctx).Where("user_id = ?", userID).First(&preferences).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.UserPreferences{}, false, nil
	}
	if err != nil {
		return models.UserPreferences{}, false, err
	}
	return preferences, true, nil
}

func (repo *PreferencesRepository) Upsert(ctx context.Context, preferences *models.UserPreferences) error {
	return repo.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"work_start_hour", "work_duration_hours", "time_zone", "updated_at"}),
	}).Create(preferences).Error
}

func (repo *PreferencesRepository) ListAll(ctx context.Context) ([]models.UserPreferences, error) {
	rows := make([]models.UserPreferences, 0)
	if err := repo.database.WithContext(ctx).Order("user_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
