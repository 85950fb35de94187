package service

import (
	"context"
	"testing"
	"time"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/internal/auth"
	"commissioning-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIssueToken(t *testing.T) {
	ctx := context.Background()
	repos, err := repository.NewMemoryRepositories()
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager("secret", time.Hour)
	require.NoError(t, err)
	svc := NewAuthService(repos, tokens, zap.NewNop())

	require.NoError(t, svc.SeedUser(ctx, "admin", "hunter2"))
	require.NoError(t, svc.SeedUser(ctx, "admin", "other"), "seeding twice keeps the first user")
	require.NoError(t, svc.SeedUser(ctx, "", ""))

	resp, err := svc.IssueToken(ctx, "admin", "hunter2")
	require.NoError(t, err)
	p, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Subject)

	_, err = svc.IssueToken(ctx, "admin", "other")
	kindOf(t, err, apperr.KindUnauthorized)
	_, err = svc.IssueToken(ctx, "nobody", "hunter2")
	kindOf(t, err, apperr.KindUnauthorized)

	entries, err := repos.Audit.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "token_issue", entries[0].Action)
}
