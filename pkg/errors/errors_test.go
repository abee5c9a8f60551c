package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFound("node", "x")))
	assert.True(t, IsConflict(NewConflict("tag", "x")))
	assert.True(t, IsValidation(NewValidation("name", "bad")))
	assert.True(t, IsCycle(NewCycle("v1")))
	assert.True(t, IsUnsupported(NewUnsupported("AddInclude", "no edges")))

	assert.False(t, IsNotFound(NewConflict("node", "x")))
	assert.False(t, IsCycle(nil))
}

func TestPredicates_SeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("while resolving: %w", NewNotFound("version", "v9"))
	assert.True(t, IsNotFound(wrapped))
}

func TestErrorMessages(t *testing.T) {
	err := NewQueryFailed("FindNodeByName", "MATCH (n) RETURN n", assert.AnError)
	assert.Contains(t, err.Error(), "[store]")
	assert.Contains(t, err.Error(), "FindNodeByName")
	assert.ErrorIs(t, err, assert.AnError)

	nf := NewNotFound("node", "greeting")
	assert.Contains(t, nf.Error(), "node not found: greeting")

	rd := NewReadFailed("GetVersion", "content/nodes/greeting.md", assert.AnError)
	assert.Contains(t, rd.Error(), "read failed in GetVersion")
	assert.NotContains(t, rd.Error(), "write failed")
}

func TestErrorTypeRouting(t *testing.T) {
	assert.Equal(t, ErrorTypeStore, NewReadFailed("op", "p", assert.AnError).Type)
	assert.Equal(t, ErrorTypeStore, NewWriteFailed("op", "p", assert.AnError).Type)
	assert.Equal(t, ErrorTypeIndex, NewIndexWriteFailed("saveIndex", "p", assert.AnError).Type)
	assert.Equal(t, ErrorTypeConfig, NewConfig("PORT is required").Type)
	assert.Equal(t, ErrorTypeResolve, NewCycle("v1").Type)
}
