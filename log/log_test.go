package log

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggersUsableBeforeInitialize(t *testing.T) {
	require.NotNil(t, InfoLog)
	require.NotNil(t, WarningLog)
	require.NotNil(t, ErrorLog)
	require.NotNil(t, DebugLog)

	assert.NotPanics(t, func() {
		InfoLog.Printf("hello %d", 1)
		ErrorLog.Print("still fine")
	})
}

func TestEvery(t *testing.T) {
	t.Run("first call logs", func(t *testing.T) {
		e := NewEvery(time.Hour)
		assert.True(t, e.ShouldLog())
		assert.False(t, e.ShouldLog())
	})

	t.Run("logs again after timeout", func(t *testing.T) {
		e := NewEvery(10 * time.Millisecond)
		require.True(t, e.ShouldLog())
		assert.Eventually(t, e.ShouldLog, time.Second, 5*time.Millisecond)
	})
}

func TestCloseWithoutInitialize(t *testing.T) {
	assert.NotPanics(t, Close)
}
