package repository

import (
	"context"
	"errors"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/models"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ProjectRepository persists projects.
type ProjectRepository interface {
	List(ctx context.Context) ([]models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	GetByName(ctx context.Context, name string) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	// Delete removes the project row. Deleting a missing project is not an error.
	Delete(ctx context.Context, id string) error
}

// RoomTypeRepository persists room types.
type RoomTypeRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]models.RoomType, error)
	GetByID(ctx context.Context, id string) (*models.RoomType, error)
	FindByName(ctx context.Context, projectID, name string) (*models.RoomType, error)
	FindByTypeCode(ctx context.Context, projectID, typeCode string) (*models.RoomType, error)
	Create(ctx context.Context, roomType *models.RoomType) error
	// Rename stores the new name and type code and copies the type code onto
	// the room type's config in the same transaction.
	Rename(ctx context.Context, roomType *models.RoomType) error
	// Delete removes the room type row. Deleting a missing room type is not an error.
	Delete(ctx context.Context, id string) error
}

// RoomConfigRepository persists room configs.
type RoomConfigRepository interface {
	ListByRoomType(ctx context.Context, projectID, roomTypeID string) ([]models.RoomConfig, error)
	Get(ctx context.Context, projectID, roomTypeID string) (*models.RoomConfig, error)
	// Create fails with a conflict when the room type already has a config.
	Create(ctx context.Context, cfg *models.RoomConfig) error
	// Upsert overwrites the existing config of the room type or creates one.
	Upsert(ctx context.Context, cfg *models.RoomConfig) (created bool, err error)
	// DeleteByRoomType reports whether a config was removed.
	DeleteByRoomType(ctx context.Context, projectID, roomTypeID string) (bool, error)
}

// UserRepository persists API users.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// AuditRepository appends and lists audit entries. List returns the newest
// first; a limit of zero or less means no limit.
type AuditRepository interface {
	CreateAuditLog(ctx context.Context, actor, action, details string) error
	List(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// Repositories bundles one backend's repositories.
type Repositories struct {
	Projects    ProjectRepository
	RoomTypes   RoomTypeRepository
	RoomConfigs RoomConfigRepository
	Users       UserRepository
	Audit       AuditRepository
}

// NewGormRepositories wires the MySQL-backed repositories.
func NewGormRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Projects:    NewProjectRepo(db),
		RoomTypes:   NewRoomTypeRepo(db),
		RoomConfigs: NewRoomConfigRepo(db),
		Users:       NewUserRepo(db),
		Audit:       NewAuditRepo(db),
	}
}

const mysqlDuplicateEntry = 1062

// translateError maps driver errors onto the apperr taxonomy so raw driver
// messages never leave the repository layer.
func translateError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", entity)
	}
	if isDuplicateKey(err) {
		return apperr.Conflict("%s already exists", entity)
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(err, "%s storage error", entity)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
