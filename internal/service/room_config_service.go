package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/blob"
	"commissioning-backend/internal/ingest"
	"commissioning-backend/internal/keylock"
	"commissioning-backend/internal/models"
	"commissioning-backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Files kept in a room type directory
const (
	ConfigFileName = "config.json"
	sourceBaseName = "source"
)

var sourceFileNames = []string{sourceBaseName + ".xlsx", sourceBaseName + ".xls"}

// WorkbookConverter turns workbook bytes into a JSON document.
type WorkbookConverter interface {
	Convert(ctx context.Context, data []byte) (json.RawMessage, error)
}

// Workbook is an uploaded spreadsheet.
type Workbook struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Payload is a config upload: either a JSON document or a workbook.
type Payload struct {
	JSON     json.RawMessage
	Workbook *Workbook
}

// prepared is a payload ready to store, produced before any lock is taken
type prepared struct {
	document   []byte
	pretty     []byte
	source     string
	sourceName string
	sourceData []byte
}

type RoomConfigService struct {
	projectRepo    repository.ProjectRepository
	roomTypeRepo   repository.RoomTypeRepository
	roomConfigRepo repository.RoomConfigRepository
	auditRepo      repository.AuditRepository
	layout         *blob.Layout
	locks          *keylock.Locker
	converter      WorkbookConverter
	logger         *zap.Logger
}

func NewRoomConfigService(
	repos repository.Repositories,
	layout *blob.Layout,
	locks *keylock.Locker,
	converter WorkbookConverter,
	logger *zap.Logger,
) *RoomConfigService {
	return &RoomConfigService{
		projectRepo:    repos.Projects,
		roomTypeRepo:   repos.RoomTypes,
		roomConfigRepo: repos.RoomConfigs,
		auditRepo:      repos.Audit,
		layout:         layout,
		locks:          locks,
		converter:      converter,
		logger:         logger,
	}
}

// ConvertWorkbook validates and converts a workbook without storing anything
func (s *RoomConfigService) ConvertWorkbook(ctx context.Context, wb Workbook) (json.RawMessage, error) {
	if err := ingest.Validate(wb.Filename, wb.ContentType, wb.Data); err != nil {
		return nil, err
	}
	if s.converter == nil {
		return nil, apperr.New(apperr.KindConversionFailed, "no workbook converter is configured")
	}
	return s.converter.Convert(ctx, wb.Data)
}

func (s *RoomConfigService) prepare(ctx context.Context, p Payload) (*prepared, error) {
	out := &prepared{source: models.SourceJSON}

	if p.Workbook != nil {
		doc, err := s.ConvertWorkbook(ctx, *p.Workbook)
		if err != nil {
			return nil, err
		}
		out.document = doc
		out.source = models.SourceWorkbook
		out.sourceName = sourceBaseName + strings.ToLower(filepath.Ext(p.Workbook.Filename))
		out.sourceData = p.Workbook.Data
	} else {
		doc := bytes.TrimSpace(p.JSON)
		if len(doc) == 0 {
			return nil, apperr.InvalidInput("config payload is required")
		}
		if !json.Valid(doc) {
			return nil, apperr.InvalidInput("config payload is not valid JSON")
		}
		out.document = doc
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, out.document, "", "    "); err != nil {
		return nil, apperr.New(apperr.KindMalformedConverterOutput, "config document is not valid JSON")
	}
	buf.WriteByte('\n')
	out.pretty = buf.Bytes()
	return out, nil
}

// resolve checks the project exists and owns the room type
func (s *RoomConfigService) resolve(ctx context.Context, projectID, roomTypeID string) (*models.RoomType, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return ownedRoomType(ctx, s.roomTypeRepo, projectID, roomTypeID)
}

// lockRoomType takes the shared project lock and the room type lock
func (s *RoomConfigService) lockRoomType(projectID, roomTypeID string) func() {
	unlockProject := s.locks.RLock(projectKey(projectID))
	unlockRT := s.locks.Lock(roomTypeKey(roomTypeID))
	return func() {
		unlockRT()
		unlockProject()
	}
}

// stage writes the payload files next to their final names
func (s *RoomConfigService) stage(projectID, code string, p *prepared) ([]*blob.Staged, error) {
	var staged []*blob.Staged

	f, err := s.layout.Stage(projectID, code, ConfigFileName, p.pretty)
	if err != nil {
		return nil, err
	}
	staged = append(staged, f)

	if p.sourceName != "" {
		f, err := s.layout.Stage(projectID, code, p.sourceName, p.sourceData)
		if err != nil {
			discardAll(staged)
			return nil, err
		}
		staged = append(staged, f)
	}
	return staged, nil
}

// commitAll moves every staged file into place. If one fails, the files
// already committed are reverted and the rest discarded.
func (s *RoomConfigService) commitAll(staged []*blob.Staged) error {
	for i, f := range staged {
		if err := f.Commit(); err != nil {
			discardAll(staged[i+1:])
			s.revertAll(staged[:i])
			return err
		}
	}
	return nil
}

func (s *RoomConfigService) revertAll(staged []*blob.Staged) {
	for i := len(staged) - 1; i >= 0; i-- {
		if err := staged[i].Revert(); err != nil {
			s.logger.Error("failed to revert stored file", zap.Error(err))
		}
	}
}

func releaseAll(staged []*blob.Staged) {
	for _, f := range staged {
		f.Release()
	}
}

func discardAll(staged []*blob.Staged) {
	for _, f := range staged {
		f.Discard()
	}
}

// dropStaleSources removes workbook copies that no longer back the config
func (s *RoomConfigService) dropStaleSources(projectID, code string, p *prepared) {
	for _, name := range sourceFileNames {
		if name == p.sourceName {
			continue
		}
		if err := s.layout.DeleteFile(projectID, code, name); err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
			s.logger.Warn("failed to remove stale workbook", zap.String("file", name), zap.Error(err))
		}
	}
}

// undoCreate removes a config row whose files could not be stored
func (s *RoomConfigService) undoCreate(ctx context.Context, projectID, roomTypeID string) {
	if _, err := s.roomConfigRepo.DeleteByRoomType(ctx, projectID, roomTypeID); err != nil {
		s.logger.Error("failed to undo config create", zap.String("roomTypeId", roomTypeID), zap.Error(err))
	}
}

// ListRoomConfigs returns the config of a room type as a list
func (s *RoomConfigService) ListRoomConfigs(ctx context.Context, projectID, roomTypeID string) ([]models.RoomConfig, error) {
	if _, err := s.resolve(ctx, projectID, roomTypeID); err != nil {
		return nil, err
	}
	return s.roomConfigRepo.ListByRoomType(ctx, projectID, roomTypeID)
}

// GetRoomConfig returns the config of a room type
func (s *RoomConfigService) GetRoomConfig(ctx context.Context, projectID, roomTypeID string) (*models.RoomConfig, error) {
	if _, err := s.resolve(ctx, projectID, roomTypeID); err != nil {
		return nil, err
	}
	return s.roomConfigRepo.Get(ctx, projectID, roomTypeID)
}

// CreateRoomConfig stores the first config of a room type. A room type that
// already has one is a conflict; nothing is merged.
func (s *RoomConfigService) CreateRoomConfig(ctx context.Context, projectID, roomTypeID string, payload Payload, actor string) (*models.RoomConfig, error) {
	// Conversion runs before any lock or write
	p, err := s.prepare(ctx, payload)
	if err != nil {
		return nil, err
	}

	unlock := s.lockRoomType(projectID, roomTypeID)
	defer unlock()

	rt, err := s.resolve(ctx, projectID, roomTypeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.roomConfigRepo.Get(ctx, projectID, roomTypeID); err == nil {
		return nil, apperr.Conflict("room type %s already has a config", rt.Name)
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	staged, err := s.stage(projectID, rt.TypeCode, p)
	if err != nil {
		return nil, err
	}

	cfg := &models.RoomConfig{
		ProjectID:  projectID,
		RoomTypeID: roomTypeID,
		TypeCode:   rt.TypeCode,
		Config:     datatypes.JSON(p.document),
		Source:     p.source,
	}
	if err := s.roomConfigRepo.Create(ctx, cfg); err != nil {
		discardAll(staged)
		return nil, err
	}
	if err := s.commitAll(staged); err != nil {
		s.undoCreate(ctx, projectID, roomTypeID)
		return nil, err
	}
	releaseAll(staged)
	s.dropStaleSources(projectID, rt.TypeCode, p)

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "room_config_create",
		fmt.Sprintf("Created config for room type %s (code: %s, source: %s)", roomTypeID, rt.TypeCode, p.source))

	return cfg, nil
}

// ReplaceRoomConfig overwrites the config of a room type, creating it when
// absent. created reports which happened.
func (s *RoomConfigService) ReplaceRoomConfig(ctx context.Context, projectID, roomTypeID string, payload Payload, actor string) (cfg *models.RoomConfig, created bool, err error) {
	p, err := s.prepare(ctx, payload)
	if err != nil {
		return nil, false, err
	}

	unlock := s.lockRoomType(projectID, roomTypeID)
	defer unlock()

	rt, err := s.resolve(ctx, projectID, roomTypeID)
	if err != nil {
		return nil, false, err
	}

	previous, err := s.roomConfigRepo.Get(ctx, projectID, roomTypeID)
	if apperr.IsKind(err, apperr.KindNotFound) {
		previous, err = nil, nil
	}
	if err != nil {
		return nil, false, err
	}

	staged, err := s.stage(projectID, rt.TypeCode, p)
	if err != nil {
		return nil, false, err
	}

	cfg = &models.RoomConfig{
		ProjectID:  projectID,
		RoomTypeID: roomTypeID,
		TypeCode:   rt.TypeCode,
		Config:     datatypes.JSON(p.document),
		Source:     p.source,
	}
	created, err = s.roomConfigRepo.Upsert(ctx, cfg)
	if err != nil {
		discardAll(staged)
		return nil, false, err
	}
	if err := s.commitAll(staged); err != nil {
		if created {
			s.undoCreate(ctx, projectID, roomTypeID)
		} else if _, restoreErr := s.roomConfigRepo.Upsert(ctx, previous); restoreErr != nil {
			s.logger.Error("failed to restore previous config",
				zap.String("roomTypeId", roomTypeID),
				zap.Error(restoreErr),
			)
		}
		return nil, false, err
	}
	releaseAll(staged)
	s.dropStaleSources(projectID, rt.TypeCode, p)

	// Audit log
	action := "room_config_replace"
	if created {
		action = "room_config_create"
	}
	recordAudit(ctx, s.auditRepo, s.logger, actor, action,
		fmt.Sprintf("Stored config for room type %s (code: %s, source: %s)", roomTypeID, rt.TypeCode, p.source))

	return cfg, created, nil
}

// DeleteRoomConfig removes the config of a room type and its directory
func (s *RoomConfigService) DeleteRoomConfig(ctx context.Context, projectID, roomTypeID, actor string) error {
	unlock := s.lockRoomType(projectID, roomTypeID)
	defer unlock()

	rt, err := s.resolve(ctx, projectID, roomTypeID)
	if err != nil {
		return err
	}

	removed, err := s.roomConfigRepo.DeleteByRoomType(ctx, projectID, roomTypeID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("room type %s has no config", rt.Name)
	}
	if err := s.layout.RemoveDirectory(projectID, rt.TypeCode); err != nil {
		return err
	}

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "room_config_delete",
		fmt.Sprintf("Deleted config for room type %s (code: %s)", roomTypeID, rt.TypeCode))

	return nil
}

// ListFiles lists the files stored for a room type
func (s *RoomConfigService) ListFiles(ctx context.Context, projectID, roomTypeID string) ([]blob.FileInfo, error) {
	unlock := s.lockRoomType(projectID, roomTypeID)
	defer unlock()

	rt, err := s.resolve(ctx, projectID, roomTypeID)
	if err != nil {
		return nil, err
	}
	return s.layout.ListFiles(projectID, rt.TypeCode)
}

// ReadFile returns one stored file of a room type
func (s *RoomConfigService) ReadFile(ctx context.Context, projectID, roomTypeID, name string) ([]byte, error) {
	unlock := s.lockRoomType(projectID, roomTypeID)
	defer unlock()

	rt, err := s.resolve(ctx, projectID, roomTypeID)
	if err != nil {
		return nil, err
	}
	return s.layout.ReadFile(projectID, rt.TypeCode, name)
}

// DeleteFile removes one stored file. config.json belongs to the config
// record and is only removed with it.
func (s *RoomConfigService) DeleteFile(ctx context.Context, projectID, roomTypeID, name, actor string) error {
	if name == ConfigFileName {
		return apperr.InvalidInput("%s is removed by deleting the room config", ConfigFileName)
	}

	unlock := s.lockRoomType(projectID, roomTypeID)
	defer unlock()

	rt, err := s.resolve(ctx, projectID, roomTypeID)
	if err != nil {
		return err
	}
	if err := s.layout.DeleteFile(projectID, rt.TypeCode, name); err != nil {
		return err
	}

	// Audit log
	recordAudit(ctx, s.auditRepo, s.logger, actor, "room_file_delete",
		fmt.Sprintf("Deleted file %s of room type %s (code: %s)", name, roomTypeID, rt.TypeCode))

	return nil
}
