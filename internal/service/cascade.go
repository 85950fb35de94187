package service

import (
	"context"

	"commissioning-backend/internal/blob"
	"commissioning-backend/internal/models"
	"commissioning-backend/internal/repository"

	"go.uber.org/zap"
)

// cascade removes a room type and everything it owns, children first:
// config record, then directory, then the room type record. Every step
// tolerates an already-removed target, so a retry after a partial failure
// completes.
type cascade struct {
	roomTypes   repository.RoomTypeRepository
	roomConfigs repository.RoomConfigRepository
	layout      *blob.Layout
	logger      *zap.Logger
}

func (c cascade) removeRoomType(ctx context.Context, rt *models.RoomType) error {
	removed, err := c.roomConfigs.DeleteByRoomType(ctx, rt.ProjectID, rt.ID)
	if err != nil {
		return err
	}
	if err := c.layout.RemoveDirectory(rt.ProjectID, rt.TypeCode); err != nil {
		return err
	}
	if err := c.roomTypes.Delete(ctx, rt.ID); err != nil {
		return err
	}

	c.logger.Debug("room type removed",
		zap.String("projectId", rt.ProjectID),
		zap.String("roomTypeId", rt.ID),
		zap.String("typeCode", rt.TypeCode),
		zap.Bool("hadConfig", removed),
	)
	return nil
}
