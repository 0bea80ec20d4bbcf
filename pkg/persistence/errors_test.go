package persistence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleError_WrapsSentinel(t *testing.T) {
	err := NewRuleError("SaveRule", "tenant-1", "rule-1", ErrRuleNotFound)

	assert.True(t, IsRuleNotFound(err))
	assert.ErrorIs(t, err, ErrRuleNotFound)
	assert.Contains(t, err.Error(), "SaveRule")
	assert.Contains(t, err.Error(), "rule-1")
	assert.Contains(t, err.Error(), "tenant-1")
}

func TestExecutionError_WrapsSentinel(t *testing.T) {
	err := NewExecutionError("MarkCompleted", "tenant-1", "exec-1", ErrExecutionTerminal)

	assert.True(t, IsExecutionTerminal(err))
	assert.ErrorIs(t, err, ErrExecutionTerminal)
	assert.Contains(t, err.Error(), "exec-1")
}

func TestErrorPredicates_RejectOtherErrors(t *testing.T) {
	plain := errors.New("boom")

	assert.False(t, IsRuleNotFound(plain))
	assert.False(t, IsExecutionNotFound(plain))
	assert.False(t, IsExecutionTerminal(plain))
	assert.False(t, IsNotificationNotFound(plain))
}

func TestErrorWrapping_ThroughFmt(t *testing.T) {
	wrapped := fmt.Errorf("query failed: %w", ErrNotificationNotFound)

	assert.True(t, IsNotificationNotFound(wrapped))
}
