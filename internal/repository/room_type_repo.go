package repository

import (
	"context"

	"commissioning-backend/internal/models"

	"gorm.io/gorm"
)

type GormRoomTypeRepository struct {
	db *gorm.DB
}

func NewRoomTypeRepo(db *gorm.DB) *GormRoomTypeRepository {
	return &GormRoomTypeRepository{db: db}
}

// ListByProject retrieves all room types of a project
func (r *GormRoomTypeRepository) ListByProject(ctx context.Context, projectID string) ([]models.RoomType, error) {
	var roomTypes []models.RoomType
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("name ASC").
		Find(&roomTypes).Error
	return roomTypes, translateError(err, "room type")
}

// GetByID retrieves a room type by ID
func (r *GormRoomTypeRepository) GetByID(ctx context.Context, id string) (*models.RoomType, error) {
	var roomType models.RoomType
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&roomType).Error; err != nil {
		return nil, translateError(err, "room type")
	}
	return &roomType, nil
}

// FindByName retrieves a room type by name within a project
func (r *GormRoomTypeRepository) FindByName(ctx context.Context, projectID, name string) (*models.RoomType, error) {
	var roomType models.RoomType
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND name = ?", projectID, name).
		First(&roomType).Error
	if err != nil {
		return nil, translateError(err, "room type")
	}
	return &roomType, nil
}

// FindByTypeCode retrieves a room type by type code within a project
func (r *GormRoomTypeRepository) FindByTypeCode(ctx context.Context, projectID, typeCode string) (*models.RoomType, error) {
	var roomType models.RoomType
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND type_code = ?", projectID, typeCode).
		First(&roomType).Error
	if err != nil {
		return nil, translateError(err, "room type")
	}
	return &roomType, nil
}

// Create creates a new room type
func (r *GormRoomTypeRepository) Create(ctx context.Context, roomType *models.RoomType) error {
	return translateError(r.db.WithContext(ctx).Create(roomType).Error, "room type")
}

// Rename updates name and type code and propagates the code to the config
func (r *GormRoomTypeRepository) Rename(ctx context.Context, roomType *models.RoomType) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.RoomType{}).
			Where("id = ?", roomType.ID).
			Updates(map[string]interface{}{
				"name":      roomType.Name,
				"type_code": roomType.TypeCode,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.RoomType{}).Where("id = ?", roomType.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return tx.Model(&models.RoomConfig{}).
			Where("room_type_id = ?", roomType.ID).
			Update("type_code", roomType.TypeCode).Error
	})
	return translateError(err, "room type")
}

// Delete hard deletes a room type
func (r *GormRoomTypeRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.RoomType{}).Error
	return translateError(err, "room type")
}
