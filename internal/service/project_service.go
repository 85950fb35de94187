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
	"commissioning-backend/pkg/utils"

	"go.uber.org/zap"
)

type ProjectService struct {
	projectRepo repository.ProjectRepository
	roomTypes   repository.RoomTypeRepository
	auditRepo   repository.AuditRepository
	layout      *blob.Layout
	locks       *keylock.Locker
	cascade     cascade
	logger      *zap.Logger
}

func NewProjectService(repos repository.Repositories, layout *blob.Layout, locks *keylock.Locker, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: repos.Projects,
		roomTypes:   repos.RoomTypes,
		auditRepo:   repos.Audit,
		layout:      layout,
		locks:       locks,
		cascade: cascade{
			roomTypes:   repos.RoomTypes,
			roomConfigs: repos.RoomConfigs,
			layout:      layout,
			logger:      logger,
		},
		logger: logger,
	}
}

// hashPassword hashes a new password. Passwords bcrypt cannot take are
// rejected as input errors.
func hashPassword(password string) (string, error) {
	hash, err := utils.HashPassword(password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", apperr.InvalidInput("password must be at most %d bytes", utils.MaxPasswordBytes)
	}
	if err != nil {
		return "", apperr.Internal(err, "failed to hash password")
	}
	return hash, nil
}

// ListProjects returns every project ordered by name
func (s *ProjectService) ListProjects(ctx context.Context) ([]models.Project, error) {
	return s.projectRepo.List(ctx)
}

// GetProject returns one project
func (s *ProjectService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id)
}

// CreateProject creates a project with a unique name
func (s *ProjectService) CreateProject(ctx context.Context, name, address, password, actor string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	address = strings.TrimSpace(address)
	if name == "" || address == "" || strings.TrimSpace(password) == "" {
		return nil, apperr.InvalidInput("name, address and password are required")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(projectNameKey(name))
	defer unlock()

	// Check name is free
	if _, err := s.projectRepo.GetByName(ctx, name); err == nil {
		return nil, apperr.Conflict("project %q already exists", name)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	project := &models.Project{Name: name, Address: address, Password: hash}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "project_create",
		fmt.Sprintf("Created project: %s (ID: %s)", project.Name, project.ID))

	return project, nil
}

// UpdateProject merges the provided fields onto the project
func (s *ProjectService) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch, actor string) (*models.Project, error) {
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		if trimmed == "" {
			return nil, apperr.InvalidInput("name must not be blank")
		}
		patch.Name = &trimmed
	}
	if patch.Address != nil {
		trimmed := strings.TrimSpace(*patch.Address)
		if trimmed == "" {
			return nil, apperr.InvalidInput("address must not be blank")
		}
		patch.Address = &trimmed
	}
	var hash string
	if patch.Password != nil {
		if strings.TrimSpace(*patch.Password) == "" {
			return nil, apperr.InvalidInput("password must not be blank")
		}
		var err error
		if hash, err = hashPassword(*patch.Password); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(projectKey(id))
	defer unlock()

	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return project, nil
	}

	if patch.Name != nil && *patch.Name != project.Name {
		unlockName := s.locks.Lock(projectNameKey(*patch.Name))
		defer unlockName()

		if _, err := s.projectRepo.GetByName(ctx, *patch.Name); err == nil {
			return nil, apperr.Conflict("project %q already exists", *patch.Name)
		} else if !apperr.IsKind(err, apperr.KindNotFound) {
			return nil, err
		}
		project.Name = *patch.Name
	}
	if patch.Address != nil {
		project.Address = *patch.Address
	}
	if patch.Password != nil {
		project.Password = hash
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "project_update",
		fmt.Sprintf("Updated project: %s (ID: %s)", project.Name, project.ID))

	return project, nil
}

// VerifyProjectPassword reports whether password opens the project
func (s *ProjectService) VerifyProjectPassword(ctx context.Context, id, password string) (bool, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return utils.ComparePassword(project.Password, password), nil
}

// DeleteProject removes the project with all its room types, configs and
// directories. Children go first; a retry after a partial failure finishes
// the job.
func (s *ProjectService) DeleteProject(ctx context.Context, id, actor string) error {
	unlock := s.locks.Lock(projectKey(id))
	defer unlock()

	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	roomTypes, err := s.roomTypes.ListByProject(ctx, id)
	if err != nil {
		return err
	}
	for i := range roomTypes {
		rt := &roomTypes[i]
		unlockRT := s.locks.Lock(roomTypeKey(rt.ID))
		err := s.cascade.removeRoomType(ctx, rt)
		unlockRT()
		if err != nil {
			s.logger.Error("project cascade stopped",
				zap.String("projectId", id),
				zap.String("roomTypeId", rt.ID),
				zap.Error(err),
			)
			return err
		}
	}

	if err := s.layout.RemoveProject(id); err != nil {
		return err
	}
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("project deleted",
		zap.String("projectId", id),
		zap.Int("roomTypes", len(roomTypes)),
	)

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "project_delete",
		fmt.Sprintf("Deleted project: %s (ID: %s, room types: %d)", project.Name, id, len(roomTypes)))

	return nil
}
