package service

import (
	"context"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/models"
	"commissioning-backend/internal/repository"

	"go.uber.org/zap"
)

const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 1000
)

// AuditService reads back the audit trail written by the other services.
type AuditService struct {
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewAuditService(repos repository.Repositories, logger *zap.Logger) *AuditService {
	return &AuditService{
		auditRepo: repos.Audit,
		logger:    logger,
	}
}

// ListAuditLogs returns the newest entries first. A zero limit means
// DefaultAuditLimit; limits above MaxAuditLimit are capped.
func (s *AuditService) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	switch {
	case limit < 0:
		return nil, apperr.InvalidInput("limit must not be negative")
	case limit == 0:
		limit = DefaultAuditLimit
	case limit > MaxAuditLimit:
		limit = MaxAuditLimit
	}
	return s.auditRepo.List(ctx, limit)
}
