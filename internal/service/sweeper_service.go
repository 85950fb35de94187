package service

import (
	"context"
	"time"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/blob"
	"commissioning-backend/internal/keylock"
	"commissioning-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SweeperService removes directories that no record owns any more, such as
// those left behind by a cascade that failed halfway. Top-level directories
// whose names are not UUIDs are never touched.
type SweeperService struct {
	projectRepo  repository.ProjectRepository
	roomTypeRepo repository.RoomTypeRepository
	layout       *blob.Layout
	locks        *keylock.Locker
	interval     time.Duration
	logger       *zap.Logger
}

func NewSweeperService(repos repository.Repositories, layout *blob.Layout, locks *keylock.Locker, interval time.Duration, logger *zap.Logger) *SweeperService {
	return &SweeperService{
		projectRepo:  repos.Projects,
		roomTypeRepo: repos.RoomTypes,
		layout:       layout,
		locks:        locks,
		interval:     interval,
		logger:       logger,
	}
}

// Start runs a sweep every interval until ctx is cancelled. A zero interval
// disables the sweeper.
func (w *SweeperService) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("orphan sweeper disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("orphan sweeper started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("orphan sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				w.logger.Warn("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep makes one pass over the blob tree and returns how many directories
// it removed.
func (w *SweeperService) Sweep(ctx context.Context) (int, error) {
	projectIDs, err := w.layout.Projects()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, projectID := range projectIDs {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		// Only directories named like a project ID are ours to sweep
		if _, err := uuid.Parse(projectID); err != nil {
			w.logger.Debug("skipping foreign directory", zap.String("name", projectID))
			continue
		}
		n, err := w.sweepProject(ctx, projectID)
		removed += n
		if err != nil {
			w.logger.Warn("failed to sweep project", zap.String("projectId", projectID), zap.Error(err))
		}
	}
	if removed > 0 {
		w.logger.Info("orphan directories removed", zap.Int("count", removed))
	}
	return removed, nil
}

func (w *SweeperService) sweepProject(ctx context.Context, projectID string) (int, error) {
	unlock := w.locks.Lock(projectKey(projectID))
	defer unlock()

	_, err := w.projectRepo.GetByID(ctx, projectID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		if err := w.layout.RemoveProject(projectID); err != nil {
			return 0, err
		}
		w.logger.Debug("removed orphan project directory", zap.String("projectId", projectID))
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	roomTypes, err := w.roomTypeRepo.ListByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	owned := make(map[string]bool, len(roomTypes))
	for _, rt := range roomTypes {
		owned[rt.TypeCode] = true
	}

	codes, err := w.layout.TypeCodes(projectID)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, code := range codes {
		if owned[code] {
			continue
		}
		if err := w.layout.RemoveDirectory(projectID, code); err != nil {
			return removed, err
		}
		w.logger.Debug("removed orphan room type directory",
			zap.String("projectId", projectID),
			zap.String("typeCode", code),
		)
		removed++
	}
	return removed, nil
}
