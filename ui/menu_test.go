package ui

import (
	"testing"

	"github.com/ByteMirror/highlander/keys"
	"github.com/stretchr/testify/assert"
)

func menuKeys(m *Menu) []keys.KeyName {
	var names []keys.KeyName
	for _, row := range m.rows {
		for _, group := range row {
			names = append(names, group.keys...)
		}
	}
	return names
}

func TestMenuOptionsFollowState(t *testing.T) {
	m := NewMenu()
	assert.Equal(t, StateIdle, m.State())
	assert.Contains(t, menuKeys(m), keys.KeyStart)
	assert.NotContains(t, menuKeys(m), keys.KeyResume)

	m.SetState(StateRunning)
	assert.Contains(t, menuKeys(m), keys.KeyCheck)
	assert.Contains(t, menuKeys(m), keys.KeyStop)
	assert.NotContains(t, menuKeys(m), keys.KeyResume)

	m.SetState(StatePaused)
	assert.Contains(t, menuKeys(m), keys.KeyResume)

	m.SetState(StateBusy)
	assert.Equal(t, []keys.KeyName{keys.KeyQuit}, menuKeys(m))
}

func TestMenuRendersHelpText(t *testing.T) {
	m := NewMenu()
	m.SetSize(120, 3)

	out := m.String()
	assert.Contains(t, out, "start")
	assert.Contains(t, out, "fight mode")
	assert.Contains(t, out, "quit")

	m.Keydown(keys.KeyStart)
	assert.Equal(t, keys.KeyStart, m.keyDown)
	m.ClearKeydown()
	assert.Equal(t, keys.KeyName(-1), m.keyDown)
}

func BenchmarkMenuString(b *testing.B) {
	menu := NewMenu()
	menu.SetSize(80, 3)
	menu.SetState(StateRunning)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = menu.String()
	}
}
