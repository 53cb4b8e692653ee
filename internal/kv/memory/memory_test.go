package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot(t *testing.T) {
	ctx := context.Background()
	s := NewWith(map[string]string{"a": "1"})

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", "2"))
	v, _, _ = s.Get(ctx, "a")
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, s.Writes())

	boom := errors.New("boom")
	s.SetFailure(boom)
	assert.ErrorIs(t, s.Set(ctx, "a", "3"), boom)
	v, _, _ = s.Get(ctx, "a")
	assert.Equal(t, "2", v)
}
