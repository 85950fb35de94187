package repository

import (
	"context"
	"sort"
	"time"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/models"

	"github.com/hashicorp/go-memdb"
)

const (
	tableProjects    = "projects"
	tableRoomTypes   = "room_types"
	tableRoomConfigs = "room_configs"
	tableUsers       = "users"
	tableAuditLogs   = "audit_logs"

	indexID          = "id"
	indexName        = "name"
	indexProject     = "project"
	indexProjectName = "project_name"
	indexProjectCode = "project_code"
	indexOwner       = "owner"
	indexUsername    = "username"
)

func memorySchema() *memdb.DBSchema {
	idIndex := &memdb.IndexSchema{
		Name:    indexID,
		Unique:  true,
		Indexer: &memdb.StringFieldIndex{Field: "ID"},
	}
	projectIndex := &memdb.IndexSchema{
		Name:    indexProject,
		Indexer: &memdb.StringFieldIndex{Field: "ProjectID"},
	}

	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableProjects: {
				Name: tableProjects,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: idIndex,
					indexName: {
						Name:    indexName,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			tableRoomTypes: {
				Name: tableRoomTypes,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      idIndex,
					indexProject: projectIndex,
					indexProjectName: {
						Name:   indexProjectName,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "ProjectID"},
								&memdb.StringFieldIndex{Field: "Name"},
							},
						},
					},
					indexProjectCode: {
						Name: indexProjectCode,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "ProjectID"},
								&memdb.StringFieldIndex{Field: "TypeCode"},
							},
						},
					},
				},
			},
			tableRoomConfigs: {
				Name: tableRoomConfigs,
				Indexes: map[string]*memdb.IndexSchema{
					indexID:      idIndex,
					indexProject: projectIndex,
					indexOwner: {
						Name:   indexOwner,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "ProjectID"},
								&memdb.StringFieldIndex{Field: "RoomTypeID"},
							},
						},
					},
				},
			},
			tableUsers: {
				Name: tableUsers,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: idIndex,
					indexUsername: {
						Name:    indexUsername,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Username"},
					},
				},
			},
			tableAuditLogs: {
				Name: tableAuditLogs,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: idIndex,
				},
			},
		},
	}
}

// NewMemoryRepositories builds repositories on a single in-memory database.
// memdb write transactions are serialized, which makes every check-then-insert
// below atomic. memdb does not enforce Unique itself, so the checks are
// explicit.
func NewMemoryRepositories() (Repositories, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return Repositories{}, err
	}
	return Repositories{
		Projects:    &MemoryProjectRepository{db: db},
		RoomTypes:   &MemoryRoomTypeRepository{db: db},
		RoomConfigs: &MemoryRoomConfigRepository{db: db},
		Users:       &MemoryUserRepository{db: db},
		Audit:       &MemoryAuditRepository{db: db},
	}, nil
}

func now() time.Time {
	return time.Now().UTC()
}

func memoryError(err error, entity string) error {
	if err == nil {
		return nil
	}
	return apperr.Internal(err, "%s storage error", entity)
}

// ---- projects ----

type MemoryProjectRepository struct {
	db *memdb.MemDB
}

func (r *MemoryProjectRepository) List(_ context.Context) ([]models.Project, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableProjects, indexName)
	if err != nil {
		return nil, memoryError(err, "project")
	}
	projects := []models.Project{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		projects = append(projects, *obj.(*models.Project))
	}
	return projects, nil
}

func (r *MemoryProjectRepository) GetByID(_ context.Context, id string) (*models.Project, error) {
	return r.first(indexID, id)
}

func (r *MemoryProjectRepository) GetByName(_ context.Context, name string) (*models.Project, error) {
	return r.first(indexName, name)
}

func (r *MemoryProjectRepository) first(index, value string) (*models.Project, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	obj, err := txn.First(tableProjects, index, value)
	if err != nil {
		return nil, memoryError(err, "project")
	}
	if obj == nil {
		return nil, apperr.NotFound("project not found")
	}
	project := *obj.(*models.Project)
	return &project, nil
}

func (r *MemoryProjectRepository) Create(_ context.Context, project *models.Project) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableProjects, indexName, project.Name)
	if err != nil {
		return memoryError(err, "project")
	}
	if existing != nil {
		return apperr.Conflict("project already exists")
	}

	if project.ID == "" {
		project.ID = models.NewID()
	}
	project.CreatedAt = now()
	project.UpdatedAt = project.CreatedAt
	stored := *project
	if err := txn.Insert(tableProjects, &stored); err != nil {
		return memoryError(err, "project")
	}
	txn.Commit()
	return nil
}

func (r *MemoryProjectRepository) Update(_ context.Context, project *models.Project) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	obj, err := txn.First(tableProjects, indexID, project.ID)
	if err != nil {
		return memoryError(err, "project")
	}
	if obj == nil {
		return apperr.NotFound("project not found")
	}
	clash, err := txn.First(tableProjects, indexName, project.Name)
	if err != nil {
		return memoryError(err, "project")
	}
	if clash != nil && clash.(*models.Project).ID != project.ID {
		return apperr.Conflict("project already exists")
	}

	stored := *obj.(*models.Project)
	stored.Name = project.Name
	stored.Address = project.Address
	stored.Password = project.Password
	stored.UpdatedAt = now()
	if err := txn.Insert(tableProjects, &stored); err != nil {
		return memoryError(err, "project")
	}
	txn.Commit()
	*project = stored
	return nil
}

func (r *MemoryProjectRepository) Delete(_ context.Context, id string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(tableProjects, indexID, id); err != nil {
		return memoryError(err, "project")
	}
	txn.Commit()
	return nil
}

// ---- room types ----

type MemoryRoomTypeRepository struct {
	db *memdb.MemDB
}

func (r *MemoryRoomTypeRepository) ListByProject(_ context.Context, projectID string) ([]models.RoomType, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableRoomTypes, indexProject, projectID)
	if err != nil {
		return nil, memoryError(err, "room type")
	}
	roomTypes := []models.RoomType{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		roomTypes = append(roomTypes, *obj.(*models.RoomType))
	}
	sort.Slice(roomTypes, func(i, j int) bool {
		return roomTypes[i].Name < roomTypes[j].Name
	})
	return roomTypes, nil
}

func (r *MemoryRoomTypeRepository) GetByID(_ context.Context, id string) (*models.RoomType, error) {
	return r.first(indexID, id)
}

func (r *MemoryRoomTypeRepository) FindByName(_ context.Context, projectID, name string) (*models.RoomType, error) {
	return r.first(indexProjectName, projectID, name)
}

func (r *MemoryRoomTypeRepository) FindByTypeCode(_ context.Context, projectID, typeCode string) (*models.RoomType, error) {
	return r.first(indexProjectCode, projectID, typeCode)
}

func (r *MemoryRoomTypeRepository) first(index string, args ...interface{}) (*models.RoomType, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	obj, err := txn.First(tableRoomTypes, index, args...)
	if err != nil {
		return nil, memoryError(err, "room type")
	}
	if obj == nil {
		return nil, apperr.NotFound("room type not found")
	}
	roomType := *obj.(*models.RoomType)
	return &roomType, nil
}

func (r *MemoryRoomTypeRepository) Create(_ context.Context, roomType *models.RoomType) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableRoomTypes, indexProjectName, roomType.ProjectID, roomType.Name)
	if err != nil {
		return memoryError(err, "room type")
	}
	if existing != nil {
		return apperr.Conflict("room type already exists")
	}

	if roomType.ID == "" {
		roomType.ID = models.NewID()
	}
	roomType.CreatedAt = now()
	roomType.UpdatedAt = roomType.CreatedAt
	stored := *roomType
	if err := txn.Insert(tableRoomTypes, &stored); err != nil {
		return memoryError(err, "room type")
	}
	txn.Commit()
	return nil
}

func (r *MemoryRoomTypeRepository) Rename(_ context.Context, roomType *models.RoomType) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	obj, err := txn.First(tableRoomTypes, indexID, roomType.ID)
	if err != nil {
		return memoryError(err, "room type")
	}
	if obj == nil {
		return apperr.NotFound("room type not found")
	}
	stored := *obj.(*models.RoomType)

	clash, err := txn.First(tableRoomTypes, indexProjectName, stored.ProjectID, roomType.Name)
	if err != nil {
		return memoryError(err, "room type")
	}
	if clash != nil && clash.(*models.RoomType).ID != stored.ID {
		return apperr.Conflict("room type already exists")
	}

	stored.Name = roomType.Name
	stored.TypeCode = roomType.TypeCode
	stored.UpdatedAt = now()
	if err := txn.Insert(tableRoomTypes, &stored); err != nil {
		return memoryError(err, "room type")
	}

	cfgObj, err := txn.First(tableRoomConfigs, indexOwner, stored.ProjectID, stored.ID)
	if err != nil {
		return memoryError(err, "room config")
	}
	if cfgObj != nil {
		cfg := *cfgObj.(*models.RoomConfig)
		cfg.TypeCode = stored.TypeCode
		cfg.UpdatedAt = stored.UpdatedAt
		if err := txn.Insert(tableRoomConfigs, &cfg); err != nil {
			return memoryError(err, "room config")
		}
	}

	txn.Commit()
	*roomType = stored
	return nil
}

func (r *MemoryRoomTypeRepository) Delete(_ context.Context, id string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	if _, err := txn.DeleteAll(tableRoomTypes, indexID, id); err != nil {
		return memoryError(err, "room type")
	}
	txn.Commit()
	return nil
}

// ---- room configs ----

type MemoryRoomConfigRepository struct {
	db *memdb.MemDB
}

func copyConfig(cfg *models.RoomConfig) models.RoomConfig {
	out := *cfg
	out.Config = append([]byte(nil), cfg.Config...)
	return out
}

func (r *MemoryRoomConfigRepository) ListByRoomType(_ context.Context, projectID, roomTypeID string) ([]models.RoomConfig, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableRoomConfigs, indexOwner, projectID, roomTypeID)
	if err != nil {
		return nil, memoryError(err, "room config")
	}
	configs := []models.RoomConfig{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		configs = append(configs, copyConfig(obj.(*models.RoomConfig)))
	}
	return configs, nil
}

func (r *MemoryRoomConfigRepository) Get(_ context.Context, projectID, roomTypeID string) (*models.RoomConfig, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	obj, err := txn.First(tableRoomConfigs, indexOwner, projectID, roomTypeID)
	if err != nil {
		return nil, memoryError(err, "room config")
	}
	if obj == nil {
		return nil, apperr.NotFound("room config not found")
	}
	cfg := copyConfig(obj.(*models.RoomConfig))
	return &cfg, nil
}

func (r *MemoryRoomConfigRepository) Create(_ context.Context, cfg *models.RoomConfig) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableRoomConfigs, indexOwner, cfg.ProjectID, cfg.RoomTypeID)
	if err != nil {
		return memoryError(err, "room config")
	}
	if existing != nil {
		return apperr.Conflict("room config already exists")
	}
	if err := r.insertNew(txn, cfg); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (r *MemoryRoomConfigRepository) Upsert(_ context.Context, cfg *models.RoomConfig) (bool, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	obj, err := txn.First(tableRoomConfigs, indexOwner, cfg.ProjectID, cfg.RoomTypeID)
	if err != nil {
		return false, memoryError(err, "room config")
	}
	if obj == nil {
		if err := r.insertNew(txn, cfg); err != nil {
			return false, err
		}
		txn.Commit()
		return true, nil
	}

	stored := copyConfig(obj.(*models.RoomConfig))
	stored.TypeCode = cfg.TypeCode
	stored.Config = append([]byte(nil), cfg.Config...)
	stored.Source = cfg.Source
	stored.UpdatedAt = now()
	if err := txn.Insert(tableRoomConfigs, &stored); err != nil {
		return false, memoryError(err, "room config")
	}
	txn.Commit()
	*cfg = copyConfig(&stored)
	return false, nil
}

func (r *MemoryRoomConfigRepository) insertNew(txn *memdb.Txn, cfg *models.RoomConfig) error {
	if cfg.ID == "" {
		cfg.ID = models.NewID()
	}
	cfg.CreatedAt = now()
	cfg.UpdatedAt = cfg.CreatedAt
	stored := copyConfig(cfg)
	if err := txn.Insert(tableRoomConfigs, &stored); err != nil {
		return memoryError(err, "room config")
	}
	return nil
}

func (r *MemoryRoomConfigRepository) DeleteByRoomType(_ context.Context, projectID, roomTypeID string) (bool, error) {
	txn := r.db.Txn(true)
	defer txn.Abort()

	n, err := txn.DeleteAll(tableRoomConfigs, indexOwner, projectID, roomTypeID)
	if err != nil {
		return false, memoryError(err, "room config")
	}
	txn.Commit()
	return n > 0, nil
}

// ---- users ----

type MemoryUserRepository struct {
	db *memdb.MemDB
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*models.User, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	obj, err := txn.First(tableUsers, indexUsername, username)
	if err != nil {
		return nil, memoryError(err, "user")
	}
	if obj == nil {
		return nil, apperr.NotFound("user not found")
	}
	user := *obj.(*models.User)
	return &user, nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableUsers, indexUsername, user.Username)
	if err != nil {
		return memoryError(err, "user")
	}
	if existing != nil {
		return apperr.Conflict("user already exists")
	}
	if user.ID == "" {
		user.ID = models.NewID()
	}
	user.CreatedAt = now()
	stored := *user
	if err := txn.Insert(tableUsers, &stored); err != nil {
		return memoryError(err, "user")
	}
	txn.Commit()
	return nil
}

// ---- audit ----

type MemoryAuditRepository struct {
	db *memdb.MemDB
}

func (r *MemoryAuditRepository) CreateAuditLog(_ context.Context, actor, action, details string) error {
	txn := r.db.Txn(true)
	defer txn.Abort()

	entry := &models.AuditLog{
		ID:        models.NewID(),
		Actor:     actor,
		Action:    action,
		Details:   details,
		CreatedAt: now(),
	}
	if err := txn.Insert(tableAuditLogs, entry); err != nil {
		return memoryError(err, "audit log")
	}
	txn.Commit()
	return nil
}

func (r *MemoryAuditRepository) List(_ context.Context, limit int) ([]models.AuditLog, error) {
	txn := r.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableAuditLogs, indexID)
	if err != nil {
		return nil, memoryError(err, "audit log")
	}
	entries := []models.AuditLog{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		entries = append(entries, *obj.(*models.AuditLog))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
