package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRotatorCycles(t *testing.T) {
	r, err := NewKeyRotator([]string{"a", "b", "c"}, time.Hour)
	require.NoError(t, err)

	var got []string
	for i := 0; i < 4; i++ {
		key, _, err := r.GetNextKey()
		require.NoError(t, err)
		got = append(got, key)
	}
	assert.Equal(t, []string{"a", "b", "c", "a"}, got)
}

func TestKeyRotatorSkipsExhausted(t *testing.T) {
	r, err := NewKeyRotator([]string{"a", "b"}, time.Hour)
	require.NoError(t, err)

	_, idx, err := r.GetNextKey()
	require.NoError(t, err)
	require.NoError(t, r.MarkKeyAsExhausted(idx))

	key, _, err := r.GetNextKey()
	require.NoError(t, err)
	assert.Equal(t, "b", key)

	key, _, err = r.GetNextKey()
	require.NoError(t, err)
	assert.Equal(t, "b", key, "exhausted key stays out of rotation")

	stats, err := r.GetAllStats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalKeys)
	assert.Equal(t, 1, stats.ExhaustedKeys)
}

func TestKeyRotatorAllExhausted(t *testing.T) {
	r, err := NewKeyRotator([]string{"only"}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, r.MarkKeyAsExhausted(0))

	_, _, err = r.GetNextKey()
	assert.Error(t, err)
}

func TestKeyRotatorCooldownExpiry(t *testing.T) {
	r, err := NewKeyRotator([]string{"only"}, time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, r.MarkKeyAsExhausted(0))

	time.Sleep(5 * time.Millisecond)
	key, _, err := r.GetNextKey()
	require.NoError(t, err)
	assert.Equal(t, "only", key)
}

func TestKeyRotatorRejectsEmptyPool(t *testing.T) {
	_, err := NewKeyRotator(nil, time.Hour)
	assert.Error(t, err)
}

func TestKeyRotatorRejectsBadIndex(t *testing.T) {
	r, err := NewKeyRotator([]string{"a"}, time.Hour)
	require.NoError(t, err)
	assert.Error(t, r.MarkKeyAsExhausted(5))
	assert.Error(t, r.MarkKeyAsExhausted(-1))
}
