package repository

import (
	"context"

	"commissioning-backend/internal/models"

	"gorm.io/gorm"
)

type GormAuditRepository struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// CreateAuditLog creates a new audit log entry
func (r *GormAuditRepository) CreateAuditLog(ctx context.Context, actor, action, details string) error {
	entry := &models.AuditLog{
		Actor:   actor,
		Action:  action,
		Details: details,
	}
	return translateError(r.db.WithContext(ctx).Create(entry).Error, "audit log")
}

// List returns the newest entries first. A limit of zero or less returns
// every entry.
func (r *GormAuditRepository) List(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, translateError(err, "audit log")
}
