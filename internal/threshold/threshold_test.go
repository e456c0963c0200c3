package threshold

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	m, err := Parse(" P1=5, P2 = 10 ,")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"P1": 5, "P2": 10}, m)

	_, err = Parse("P1")
	assert.Error(t, err)
	_, err = Parse("P1=-2")
	assert.Error(t, err)

	m, err = Parse("")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestStatic(t *testing.T) {
	s := NewStatic(map[string]int64{"P1": 5}, 0)

	v, ok := s.Threshold(context.Background(), "P1")
	assert.True(t, ok)
	assert.Equal(t, int64(5), v)

	_, ok = s.Threshold(context.Background(), "P2")
	assert.False(t, ok)

	withFallback := NewStatic(nil, 3)
	v, ok = withFallback.Threshold(context.Background(), "P2")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	assert.True(t, IsLow(5, 5))
	assert.False(t, IsLow(6, 5))
}
