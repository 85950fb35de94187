package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := NotFound("project %s not found", "p1")
	wrapped := fmt.Errorf("delete project: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.True(t, errors.Is(wrapped, NotFound("")))
	assert.False(t, errors.Is(wrapped, Conflict("")))
	assert.Equal(t, "project p1 not found", Message(wrapped))
}

func TestUnclassifiedErrorsAreInternal(t *testing.T) {
	err := errors.New("dial tcp 10.0.0.1:3306: connection refused")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal server error", Message(err))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("Error 1146: Table 'x.projects' doesn't exist")
	err := Internal(cause, "failed to list projects")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", Message(err))
	assert.Contains(t, err.Error(), "failed to list projects")
}
