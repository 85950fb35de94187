package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/blob"
	"commissioning-backend/internal/keylock"
	"commissioning-backend/internal/models"
	"commissioning-backend/internal/repository"
	"commissioning-backend/internal/typecode"

	"go.uber.org/zap"
)

// renames retry when a concurrent rename changed the code they locked
const maxRenameAttempts = 3

type RoomTypeService struct {
	projectRepo  repository.ProjectRepository
	roomTypeRepo repository.RoomTypeRepository
	auditRepo    repository.AuditRepository
	layout       *blob.Layout
	locks        *keylock.Locker
	cascade      cascade
	logger       *zap.Logger
}

func NewRoomTypeService(repos repository.Repositories, layout *blob.Layout, locks *keylock.Locker, logger *zap.Logger) *RoomTypeService {
	return &RoomTypeService{
		projectRepo:  repos.Projects,
		roomTypeRepo: repos.RoomTypes,
		auditRepo:    repos.Audit,
		layout:       layout,
		locks:        locks,
		cascade: cascade{
			roomTypes:   repos.RoomTypes,
			roomConfigs: repos.RoomConfigs,
			layout:      layout,
			logger:      logger,
		},
		logger: logger,
	}
}

// deriveCode trims name and derives a code usable as a directory name
func deriveCode(name string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", apperr.InvalidInput("name is required")
	}
	code := typecode.Derive(name)
	if !typecode.Valid(code) {
		return "", "", apperr.InvalidInput("name %q does not produce a usable type code", name)
	}
	return name, code, nil
}

// ownedRoomType loads a room type and checks it belongs to the project
func ownedRoomType(ctx context.Context, repo repository.RoomTypeRepository, projectID, id string) (*models.RoomType, error) {
	rt, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rt.ProjectID != projectID {
		return nil, apperr.NotFound("room type not found in project")
	}
	return rt, nil
}

// ListRoomTypes returns the room types of a project
func (s *RoomTypeService) ListRoomTypes(ctx context.Context, projectID string) ([]models.RoomType, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.roomTypeRepo.ListByProject(ctx, projectID)
}

// CreateRoomType adds a room type and its directory
func (s *RoomTypeService) CreateRoomType(ctx context.Context, projectID, name, actor string) (*models.RoomType, error) {
	name, code, err := deriveCode(name)
	if err != nil {
		return nil, err
	}

	unlockProject := s.locks.RLock(projectKey(projectID))
	defer unlockProject()

	// Verify project exists
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	unlock := s.locks.LockAll(typeCodeKey(projectID, code), roomTypeNameKey(projectID, name))
	defer unlock()

	if _, err := s.roomTypeRepo.FindByName(ctx, projectID, name); err == nil {
		return nil, apperr.Conflict("room type %q already exists", name)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	if other, err := s.roomTypeRepo.FindByTypeCode(ctx, projectID, code); err == nil {
		return nil, apperr.Conflict("type code %s is already used by room type %q", code, other.Name)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	rt := &models.RoomType{ProjectID: projectID, Name: name, TypeCode: code}
	if err := s.roomTypeRepo.Create(ctx, rt); err != nil {
		return nil, err
	}
	if err := s.layout.EnsureDirectory(projectID, code); err != nil {
		if delErr := s.roomTypeRepo.Delete(ctx, rt.ID); delErr != nil {
			s.logger.Error("failed to undo room type create", zap.String("roomTypeId", rt.ID), zap.Error(delErr))
		}
		return nil, err
	}

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "room_type_create",
		fmt.Sprintf("Created room type: %s (code: %s, project: %s)", name, code, projectID))

	return rt, nil
}

// RenameRoomType changes the name, recomputes the type code, carries the code
// onto the config and moves the directory.
func (s *RoomTypeService) RenameRoomType(ctx context.Context, projectID, id, newName, actor string) (*models.RoomType, error) {
	newName, newCode, err := deriveCode(newName)
	if err != nil {
		return nil, err
	}

	unlockProject := s.locks.RLock(projectKey(projectID))
	defer unlockProject()

	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		current, err := ownedRoomType(ctx, s.roomTypeRepo, projectID, id)
		if err != nil {
			return nil, err
		}

		unlock := s.locks.LockAll(
			roomTypeKey(id),
			typeCodeKey(projectID, current.TypeCode),
			typeCodeKey(projectID, newCode),
			roomTypeNameKey(projectID, newName),
		)
		rt, err := s.renameLocked(ctx, projectID, id, current.TypeCode, newName, newCode, actor)
		unlock()

		if !errors.Is(err, errCodeMoved) {
			return rt, err
		}
		if attempt+1 >= maxRenameAttempts {
			return nil, apperr.Conflict("room type was renamed concurrently, try again")
		}
	}
}

var errCodeMoved = errors.New("room type code changed while waiting")

func (s *RoomTypeService) renameLocked(ctx context.Context, projectID, id, lockedCode, newName, newCode, actor string) (*models.RoomType, error) {
	rt, err := ownedRoomType(ctx, s.roomTypeRepo, projectID, id)
	if err != nil {
		return nil, err
	}
	if rt.TypeCode != lockedCode {
		return nil, errCodeMoved
	}
	if rt.Name == newName {
		return rt, nil
	}

	if other, err := s.roomTypeRepo.FindByName(ctx, projectID, newName); err == nil && other.ID != id {
		return nil, apperr.Conflict("room type %q already exists", newName)
	} else if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	if other, err := s.roomTypeRepo.FindByTypeCode(ctx, projectID, newCode); err == nil && other.ID != id {
		return nil, apperr.Conflict("type code %s is already used by room type %q", newCode, other.Name)
	} else if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	oldName, oldCode := rt.Name, rt.TypeCode
	if oldCode != newCode {
		if err := s.layout.MoveDirectory(projectID, oldCode, newCode); err != nil {
			return nil, err
		}
	}

	rt.Name = newName
	rt.TypeCode = newCode
	if err := s.roomTypeRepo.Rename(ctx, rt); err != nil {
		if oldCode != newCode {
			if moveErr := s.layout.MoveDirectory(projectID, newCode, oldCode); moveErr != nil {
				s.logger.Error("failed to move directory back after rename error",
					zap.String("roomTypeId", id),
					zap.String("from", newCode),
					zap.String("to", oldCode),
					zap.Error(moveErr),
				)
			}
		}
		return nil, err
	}

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "room_type_rename",
		fmt.Sprintf("Renamed room type %s: %s (%s) -> %s (%s)", id, oldName, oldCode, newName, newCode))

	return rt, nil
}

// DeleteRoomType removes the room type, its config and its directory
func (s *RoomTypeService) DeleteRoomType(ctx context.Context, projectID, id, actor string) error {
	unlockProject := s.locks.RLock(projectKey(projectID))
	defer unlockProject()

	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return err
	}

	unlock := s.locks.Lock(roomTypeKey(id))
	defer unlock()

	rt, err := ownedRoomType(ctx, s.roomTypeRepo, projectID, id)
	if err != nil {
		return err
	}
	if err := s.cascade.removeRoomType(ctx, rt); err != nil {
		return err
	}

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "room_type_delete",
		fmt.Sprintf("Deleted room type: %s (code: %s, project: %s)", rt.Name, rt.TypeCode, projectID))

	return nil
}
