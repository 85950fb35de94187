package repository

import (
	"context"
	"errors"

	"commissioning-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormRoomConfigRepository struct {
	db *gorm.DB
}

func NewRoomConfigRepo(db *gorm.DB) *GormRoomConfigRepository {
	return &GormRoomConfigRepository{db: db}
}

// ListByRoomType retrieves the configs of a room type
func (r *GormRoomConfigRepository) ListByRoomType(ctx context.Context, projectID, roomTypeID string) ([]models.RoomConfig, error) {
	var configs []models.RoomConfig
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND room_type_id = ?", projectID, roomTypeID).
		Order("created_at ASC").
		Find(&configs).Error
	return configs, translateError(err, "room config")
}

// Get retrieves the config of a room type
func (r *GormRoomConfigRepository) Get(ctx context.Context, projectID, roomTypeID string) (*models.RoomConfig, error) {
	var cfg models.RoomConfig
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND room_type_id = ?", projectID, roomTypeID).
		First(&cfg).Error
	if err != nil {
		return nil, translateError(err, "room config")
	}
	return &cfg, nil
}

// Create inserts a config; the unique owner index turns a second insert into a conflict
func (r *GormRoomConfigRepository) Create(ctx context.Context, cfg *models.RoomConfig) error {
	return translateError(r.db.WithContext(ctx).Create(cfg).Error, "room config")
}

// Upsert replaces the payload of the existing config or creates one
func (r *GormRoomConfigRepository) Upsert(ctx context.Context, cfg *models.RoomConfig) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RoomConfig
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project_id = ? AND room_type_id = ?", cfg.ProjectID, cfg.RoomTypeID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(cfg).Error
		}
		if err != nil {
			return err
		}

		existing.TypeCode = cfg.TypeCode
		existing.Config = cfg.Config
		existing.Source = cfg.Source
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*cfg = existing
		return nil
	})
	if err != nil {
		return false, translateError(err, "room config")
	}
	return created, nil
}

// DeleteByRoomType removes the config of a room type
func (r *GormRoomConfigRepository) DeleteByRoomType(ctx context.Context, projectID, roomTypeID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND room_type_id = ?", projectID, roomTypeID).
		Delete(&models.RoomConfig{})
	if result.Error != nil {
		return false, translateError(result.Error, "room config")
	}
	return result.RowsAffected > 0, nil
}
