package overlay

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToastTypes(t *testing.T) {
	s := spinner.New()
	tm := NewToastManager(&s)

	infoID := tm.Info("info message")
	successID := tm.Success("success message")
	errorID := tm.Error("error message")
	loadingID := tm.Loading("waiting for workers")

	require.Len(t, tm.toasts, 4)
	assert.Equal(t, ToastInfo, tm.toasts[0].Type)
	assert.Equal(t, ToastSuccess, tm.toasts[1].Type)
	assert.Equal(t, ToastError, tm.toasts[2].Type)
	assert.Equal(t, ToastLoading, tm.toasts[3].Type)
	assert.True(t, tm.toasts[3].Expires.IsZero(), "loading toasts never expire")

	ids := map[string]bool{infoID: true, successID: true, errorID: true, loadingID: true}
	assert.Len(t, ids, 4, "all toast IDs should be unique")
}

func TestResolveLoadingToast(t *testing.T) {
	s := spinner.New()
	tm := NewToastManager(&s)

	id := tm.Loading("pausing")
	tm.Resolve(id, ToastSuccess, "invariant holds")

	require.Len(t, tm.toasts, 1)
	assert.Equal(t, ToastSuccess, tm.toasts[0].Type)
	assert.Equal(t, "invariant holds", tm.toasts[0].Message)
	assert.False(t, tm.toasts[0].Expires.IsZero())

	assert.NotPanics(t, func() {
		tm.Resolve("does-not-exist", ToastError, "nope")
	})
	assert.Len(t, tm.toasts, 1)
}

func TestTickDropsExpiredToasts(t *testing.T) {
	s := spinner.New()
	tm := NewToastManager(&s)

	tm.Info("old")
	tm.Loading("forever")
	tm.toasts[0].Expires = time.Now().Add(-time.Millisecond)

	tm.Tick()
	require.Len(t, tm.toasts, 1)
	assert.Equal(t, "forever", tm.toasts[0].Message)
	assert.True(t, tm.HasActiveToasts())
}

func TestMaxToastsPrefersDroppingNonLoading(t *testing.T) {
	s := spinner.New()
	tm := NewToastManager(&s)

	tm.Loading("keep me")
	for i := 0; i < MaxToasts+2; i++ {
		tm.Info("filler")
	}

	assert.Len(t, tm.toasts, MaxToasts)
	assert.Equal(t, "keep me", tm.toasts[0].Message)
}

func TestToastViewWrapsLongMessages(t *testing.T) {
	s := spinner.New()
	tm := NewToastManager(&s)
	tm.SetSize(80, 24)

	assert.Empty(t, tm.View())

	tm.Error(strings.Repeat("worker did not park in time ", 5))
	view := tm.View()
	assert.Contains(t, view, "worker")
	assert.Greater(t, strings.Count(view, "\n"), 2, "long message wraps onto several lines")
}
