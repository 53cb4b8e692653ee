package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetReplaceRows(t *testing.T) {
	s := New()
	rows := [][]string{{"Title"}, {"Coffee"}}
	require.NoError(t, s.ReplaceRows(context.Background(), rows))
	rows[1][0] = "changed"
	assert.Equal(t, [][]string{{"Title"}, {"Coffee"}}, s.Rows())

	require.NoError(t, s.ReplaceRows(context.Background(), [][]string{{"Title"}}))
	assert.Len(t, s.Rows(), 1)
	assert.Equal(t, 2, s.Writes())

	boom := errors.New("quota")
	s.SetFailure(boom)
	assert.ErrorIs(t, s.ReplaceRows(context.Background(), nil), boom)
	assert.Len(t, s.Rows(), 1)
}
