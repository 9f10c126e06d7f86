package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("1990-05-17")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)))

	got, err = ParseDate("1990-05-17T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())

	got, err = ParseDate("  ")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ParseDate("17/05/1990")
	assert.Error(t, err)
}
