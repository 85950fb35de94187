package service

import (
	"context"

	"commissioning-backend/internal/repository"

	"go.uber.org/zap"
)

// Lock keys. A project key is held shared by every operation below the
// project and exclusively by project-wide operations.
func projectKey(projectID string) string { return "project:" + projectID }

func projectNameKey(name string) string { return "projname:" + name }

func roomTypeKey(roomTypeID string) string { return "rt:" + roomTypeID }

func roomTypeNameKey(projectID, name string) string { return "rtname:" + projectID + ":" + name }

func typeCodeKey(projectID, code string) string { return "rtcode:" + projectID + ":" + code }

// recordAudit appends an audit entry. A failed write is logged and otherwise
// ignored so it never fails the operation it describes.
func recordAudit(ctx context.Context, repo repository.AuditRepository, logger *zap.Logger, actor, action, details string) {
	if err := repo.CreateAuditLog(ctx, actor, action, details); err != nil {
		logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("actor", actor),
			zap.Error(err),
		)
	}
}
