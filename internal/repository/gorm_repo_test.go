package repository

import (
	"context"
	"testing"
	"time"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestGormProjectGetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectQuery("SELECT \\* FROM `projects` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "address", "password"}))

	_, err := repo.GetByID(context.Background(), "missing")

	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProjectCreateDuplicateIsConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectExec("INSERT INTO `projects`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'Harbour View' for key 'name'"})

	err := repo.Create(context.Background(), &models.Project{Name: "Harbour View", Address: "1 Quay St", Password: "h"})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.NotContains(t, apperr.Message(err), "Duplicate entry")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProjectDeleteMissingIsNoop(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewProjectRepo(db)

	mock.ExpectExec("DELETE FROM `projects` WHERE id = \\?").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "gone"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRoomTypeRenameUpdatesConfigInTransaction(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoomTypeRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `room_types` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `room_configs` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Rename(context.Background(), &models.RoomType{ID: "rt1", ProjectID: "p1", Name: "King Bed Suite", TypeCode: "KBS"})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRoomTypeRenameRollsBackOnConfigFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoomTypeRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `room_types` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `room_configs` SET").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Rename(context.Background(), &models.RoomType{ID: "rt1", ProjectID: "p1", Name: "King Bed Suite", TypeCode: "KBS"})

	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRoomConfigUpsertOverwritesExisting(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoomConfigRepo(db)
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `room_configs` WHERE .* FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "room_type_id", "type_code", "config", "source", "created_at", "updated_at"}).
			AddRow("cfg1", "p1", "rt1", "D", []byte(`{"old":true}`), "json", created, created))
	mock.ExpectExec("UPDATE `room_configs` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cfg := &models.RoomConfig{ProjectID: "p1", RoomTypeID: "rt1", TypeCode: "D", Config: datatypes.JSON(`{"new":true}`), Source: models.SourceWorkbook}
	wasCreated, err := repo.Upsert(context.Background(), cfg)

	require.NoError(t, err)
	assert.False(t, wasCreated)
	assert.Equal(t, "cfg1", cfg.ID)
	assert.JSONEq(t, `{"new":true}`, string(cfg.Config))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRoomConfigDeleteReportsRemoval(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewRoomConfigRepo(db)

	mock.ExpectExec("DELETE FROM `room_configs`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM `room_configs`").WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.DeleteByRoomType(context.Background(), "p1", "rt1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.DeleteByRoomType(context.Background(), "p1", "rt1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAuditListLimit(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAuditRepo(db)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	columns := []string{"id", "actor", "action", "details", "created_at"}

	mock.ExpectQuery("SELECT \\* FROM `audit_logs` ORDER BY created_at DESC$").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a2", "ops", "project_delete", "deleted", at).
			AddRow("a1", "ops", "project_create", "created", at))
	mock.ExpectQuery("SELECT \\* FROM `audit_logs` ORDER BY created_at DESC LIMIT").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a2", "ops", "project_delete", "deleted", at))

	all, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 2, "zero means no limit")

	one, err := repo.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "a2", one[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
