package emitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_StartStop(t *testing.T) {
	timer := NewTimer()

	token := timer.Start("render")
	require.NotEmpty(t, token)

	time.Sleep(10 * time.Millisecond)

	result, err := timer.Stop(token)
	require.NoError(t, err)
	assert.Equal(t, "render", result.Operation)
	assert.Greater(t, result.DurationSeconds, 0.0)
}

func TestTimer_StopUnknownToken(t *testing.T) {
	timer := NewTimer()

	_, err := timer.Stop("no-such-token")
	assert.Error(t, err)
}

func TestTimer_TokenIsSingleUse(t *testing.T) {
	timer := NewTimer()

	token := timer.Start("render")
	_, err := timer.Stop(token)
	require.NoError(t, err)

	_, err = timer.Stop(token)
	assert.Error(t, err)
}

func TestTimer_ConcurrentOperations(t *testing.T) {
	timer := NewTimer()

	first := timer.Start("render")
	second := timer.Start("upload")

	resultSecond, err := timer.Stop(second)
	require.NoError(t, err)
	assert.Equal(t, "upload", resultSecond.Operation)

	resultFirst, err := timer.Stop(first)
	require.NoError(t, err)
	assert.Equal(t, "render", resultFirst.Operation)
}
