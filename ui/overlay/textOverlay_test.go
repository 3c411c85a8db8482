package overlay

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestTextOverlayDismissesOnAnyKey(t *testing.T) {
	o := NewTextOverlay("Help", "press any key")
	dismissed := false
	o.OnDismiss = func() { dismissed = true }

	closed := o.HandleKeyPress(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("z")})
	assert.True(t, closed)
	assert.True(t, o.Dismissed)
	assert.True(t, dismissed)
}

func TestTextOverlayRender(t *testing.T) {
	o := NewTextOverlay("Invariant check", strings.Repeat("fights ", 30))
	o.SetWidth(40)

	out := o.Render()
	assert.Contains(t, out, "Invariant check")
	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 60)
	}

	placed := o.Place(100, 30)
	assert.Equal(t, 30, strings.Count(placed, "\n")+1)
}
