package repository

import (
	"context"
	"testing"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func newMemory(t *testing.T) Repositories {
	t.Helper()
	repos, err := NewMemoryRepositories()
	require.NoError(t, err)
	return repos
}

func TestMemoryProjectUniqueName(t *testing.T) {
	ctx := context.Background()
	repos := newMemory(t)

	first := &models.Project{Name: "Harbour View", Address: "1 Quay St", Password: "x"}
	require.NoError(t, repos.Projects.Create(ctx, first))
	assert.NotEmpty(t, first.ID)

	err := repos.Projects.Create(ctx, &models.Project{Name: "Harbour View", Address: "2 Quay St", Password: "y"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	projects, err := repos.Projects.List(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestMemoryProjectUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repos := newMemory(t)

	a := &models.Project{Name: "A", Address: "a", Password: "p"}
	b := &models.Project{Name: "B", Address: "b", Password: "p"}
	require.NoError(t, repos.Projects.Create(ctx, a))
	require.NoError(t, repos.Projects.Create(ctx, b))

	b.Name = "A"
	assert.True(t, apperr.IsKind(repos.Projects.Update(ctx, b), apperr.KindConflict))

	a.Address = "new address"
	require.NoError(t, repos.Projects.Update(ctx, a))
	got, err := repos.Projects.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "new address", got.Address)

	require.NoError(t, repos.Projects.Delete(ctx, a.ID))
	require.NoError(t, repos.Projects.Delete(ctx, a.ID), "second delete must be a no-op")
	_, err = repos.Projects.GetByID(ctx, a.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestMemoryRoomTypeRenamePropagatesTypeCode(t *testing.T) {
	ctx := context.Background()
	repos := newMemory(t)

	rt := &models.RoomType{ProjectID: "p1", Name: "Deluxe Room", TypeCode: "D"}
	require.NoError(t, repos.RoomTypes.Create(ctx, rt))
	cfg := &models.RoomConfig{ProjectID: "p1", RoomTypeID: rt.ID, TypeCode: "D", Config: datatypes.JSON(`{"a":1}`), Source: models.SourceJSON}
	require.NoError(t, repos.RoomConfigs.Create(ctx, cfg))

	rt.Name = "King Bed Suite"
	rt.TypeCode = "KBS"
	require.NoError(t, repos.RoomTypes.Rename(ctx, rt))

	got, err := repos.RoomConfigs.Get(ctx, "p1", rt.ID)
	require.NoError(t, err)
	assert.Equal(t, "KBS", got.TypeCode)

	byCode, err := repos.RoomTypes.FindByTypeCode(ctx, "p1", "KBS")
	require.NoError(t, err)
	assert.Equal(t, rt.ID, byCode.ID)
	_, err = repos.RoomTypes.FindByTypeCode(ctx, "p1", "D")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestMemoryRoomTypeNameScopedToProject(t *testing.T) {
	ctx := context.Background()
	repos := newMemory(t)

	require.NoError(t, repos.RoomTypes.Create(ctx, &models.RoomType{ProjectID: "p1", Name: "Suite", TypeCode: "S"}))
	require.NoError(t, repos.RoomTypes.Create(ctx, &models.RoomType{ProjectID: "p2", Name: "Suite", TypeCode: "S"}))
	err := repos.RoomTypes.Create(ctx, &models.RoomType{ProjectID: "p1", Name: "Suite", TypeCode: "S"})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	list, err := repos.RoomTypes.ListByProject(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryRoomConfigCreateUpsertDelete(t *testing.T) {
	ctx := context.Background()
	repos := newMemory(t)

	first := &models.RoomConfig{ProjectID: "p1", RoomTypeID: "r1", TypeCode: "D", Config: datatypes.JSON(`{"v":1}`), Source: models.SourceJSON}
	require.NoError(t, repos.RoomConfigs.Create(ctx, first))

	err := repos.RoomConfigs.Create(ctx, &models.RoomConfig{ProjectID: "p1", RoomTypeID: "r1", TypeCode: "D", Config: datatypes.JSON(`{"v":2}`), Source: models.SourceJSON})
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	got, err := repos.RoomConfigs.Get(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got.Config))

	replacement := &models.RoomConfig{ProjectID: "p1", RoomTypeID: "r1", TypeCode: "D", Config: datatypes.JSON(`{"v":3}`), Source: models.SourceWorkbook}
	created, err := repos.RoomConfigs.Upsert(ctx, replacement)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, replacement.ID)

	list, err := repos.RoomConfigs.ListByRoomType(ctx, "p1", "r1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"v":3}`, string(list[0].Config))
	assert.Equal(t, models.SourceWorkbook, list[0].Source)

	removed, err := repos.RoomConfigs.DeleteByRoomType(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repos.RoomConfigs.DeleteByRoomType(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.False(t, removed)

	created, err = repos.RoomConfigs.Upsert(ctx, &models.RoomConfig{ProjectID: "p1", RoomTypeID: "r1", TypeCode: "D", Config: datatypes.JSON(`{}`), Source: models.SourceJSON})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repos := newMemory(t)

	cfg := &models.RoomConfig{ProjectID: "p1", RoomTypeID: "r1", TypeCode: "D", Config: datatypes.JSON(`{"v":1}`), Source: models.SourceJSON}
	require.NoError(t, repos.RoomConfigs.Create(ctx, cfg))

	got, err := repos.RoomConfigs.Get(ctx, "p1", "r1")
	require.NoError(t, err)
	got.Config[2] = 'X'
	got.TypeCode = "MUTATED"

	again, err := repos.RoomConfigs.Get(ctx, "p1", "r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(again.Config))
	assert.Equal(t, "D", again.TypeCode)
}

func TestMemoryUsersAndAudit(t *testing.T) {
	ctx := context.Background()
	repos := newMemory(t)

	require.NoError(t, repos.Users.Create(ctx, &models.User{Username: "ops@example.com", PasswordHash: "h"}))
	assert.True(t, apperr.IsKind(repos.Users.Create(ctx, &models.User{Username: "ops@example.com", PasswordHash: "h"}), apperr.KindConflict))
	u, err := repos.Users.FindByUsername(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h", u.PasswordHash)

	require.NoError(t, repos.Audit.CreateAuditLog(ctx, "ops", "project_create", "created"))
	require.NoError(t, repos.Audit.CreateAuditLog(ctx, "ops", "project_delete", "deleted"))
	entries, err := repos.Audit.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = repos.Audit.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "zero means no limit")
}
