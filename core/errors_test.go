package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	plain := NewError(KindValidation, "missing task id")
	assert.Equal(t, "validation: missing task id", plain.Error())

	wrapped := WrapError(KindNetwork, errors.New("connection refused"), "discovery request to %s failed", "http://peer")
	assert.Equal(t, "network: discovery request to http://peer failed: connection refused", wrapped.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(KindNetwork, cause, "discovery failed")

	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		kind, ok := KindOf(NewError(KindCapabilityNotFound, "no such capability"))
		require.True(t, ok)
		assert.Equal(t, KindCapabilityNotFound, kind)
	})

	t.Run("wrapped in fmt chain", func(t *testing.T) {
		err := fmt.Errorf("dispatch: %w", NewError(KindStore, "db locked"))
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, KindStore, kind)
	})

	t.Run("untyped", func(t *testing.T) {
		_, ok := KindOf(errors.New("plain"))
		assert.False(t, ok)
	})

	t.Run("nil", func(t *testing.T) {
		_, ok := KindOf(nil)
		assert.False(t, ok)
	})
}
