package overlay

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// ToastType identifies the kind of toast notification.
type ToastType int

const (
	ToastInfo ToastType = iota
	ToastSuccess
	ToastError
	// ToastLoading stays until it is resolved, e.g. while a pause waits for
	// every worker to park.
	ToastLoading
)

const (
	InfoDismissAfter    = 3 * time.Second
	SuccessDismissAfter = 3 * time.Second
	ErrorDismissAfter   = 5 * time.Second

	MinToastWidth = 30
	MaxToastWidth = 50
	MaxToasts     = 4
)

var idCounter atomic.Uint64

type toast struct {
	ID      string
	Type    ToastType
	Message string
	// Expires is zero for toasts that never time out.
	Expires time.Time
}

// ToastManager keeps the short notifications shown in the top right corner.
// It is only touched from the bubbletea update loop and is not safe for
// concurrent use.
type ToastManager struct {
	toasts  []*toast
	spinner *spinner.Model
	width   int
}

func NewToastManager(s *spinner.Model) *ToastManager {
	return &ToastManager{spinner: s}
}

// SetSize updates the viewport width the toast width is derived from.
func (tm *ToastManager) SetSize(width, height int) {
	tm.width = width
}

func (tm *ToastManager) toastWidth() int {
	return min(max(tm.width*40/100, MinToastWidth), MaxToastWidth)
}

func (tm *ToastManager) Info(msg string) string {
	return tm.add(ToastInfo, msg)
}

func (tm *ToastManager) Success(msg string) string {
	return tm.add(ToastSuccess, msg)
}

func (tm *ToastManager) Error(msg string) string {
	return tm.add(ToastError, msg)
}

// Loading adds a toast that stays until Resolve is called with its id.
func (tm *ToastManager) Loading(msg string) string {
	return tm.add(ToastLoading, msg)
}

func lifetime(typ ToastType) time.Duration {
	switch typ {
	case ToastSuccess:
		return SuccessDismissAfter
	case ToastError:
		return ErrorDismissAfter
	case ToastLoading:
		return 0
	default:
		return InfoDismissAfter
	}
}

func (tm *ToastManager) add(typ ToastType, msg string) string {
	t := &toast{
		ID:      "toast-" + strconv.FormatUint(idCounter.Add(1), 10),
		Type:    typ,
		Message: msg,
	}
	if d := lifetime(typ); d > 0 {
		t.Expires = time.Now().Add(d)
	}

	if len(tm.toasts) >= MaxToasts {
		tm.dropOldest()
	}
	tm.toasts = append(tm.toasts, t)
	return t.ID
}

// dropOldest removes the oldest toast, preferring ones that are not loading.
func (tm *ToastManager) dropOldest() {
	for i, t := range tm.toasts {
		if t.Type != ToastLoading {
			tm.toasts = append(tm.toasts[:i], tm.toasts[i+1:]...)
			return
		}
	}
	tm.toasts = tm.toasts[1:]
}

// Resolve turns a toast into a new type and message and restarts its
// lifetime. Unknown ids are ignored.
func (tm *ToastManager) Resolve(id string, typ ToastType, msg string) {
	for _, t := range tm.toasts {
		if t.ID != id {
			continue
		}
		t.Type = typ
		t.Message = msg
		t.Expires = time.Time{}
		if d := lifetime(typ); d > 0 {
			t.Expires = time.Now().Add(d)
		}
		return
	}
}

// ToastTickMsg drives expiry while toasts are visible.
type ToastTickMsg struct{}

// Tick drops expired toasts.
func (tm *ToastManager) Tick() {
	now := time.Now()
	alive := tm.toasts[:0]
	for _, t := range tm.toasts {
		if !t.Expires.IsZero() && now.After(t.Expires) {
			continue
		}
		alive = append(alive, t)
	}
	tm.toasts = alive
}

func (tm *ToastManager) HasActiveToasts() bool {
	return len(tm.toasts) > 0
}

func toastColor(typ ToastType) lipgloss.Color {
	switch typ {
	case ToastSuccess:
		return lipgloss.Color("#A8D8A8")
	case ToastError:
		return lipgloss.Color("#FF6B6B")
	case ToastLoading:
		return lipgloss.Color("#F0A868")
	default:
		return lipgloss.Color("#7EC8D8")
	}
}

func (tm *ToastManager) icon(typ ToastType) string {
	style := lipgloss.NewStyle().Foreground(toastColor(typ))
	switch typ {
	case ToastSuccess:
		return style.Render("✓")
	case ToastError:
		return style.Render("✗")
	case ToastLoading:
		return style.Render(tm.spinner.View())
	default:
		return style.Render("▸")
	}
}

func (tm *ToastManager) render(t *toast) string {
	width := tm.toastWidth()
	icon := tm.icon(t.Type)
	// Border and padding take four columns, the icon and a space the rest.
	msgWidth := max(width-4-lipgloss.Width(icon)-1, 10)

	lines := strings.Split(wordwrap.String(t.Message, msgWidth), "\n")
	indent := strings.Repeat(" ", lipgloss.Width(icon)+1)
	for i := 1; i < len(lines); i++ {
		lines[i] = indent + lines[i]
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(toastColor(t.Type)).
		Padding(0, 1).
		Width(width).
		Render(icon + " " + strings.Join(lines, "\n"))
}

// View renders the toasts stacked vertically, newest last.
func (tm *ToastManager) View() string {
	if len(tm.toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(tm.toasts))
	for _, t := range tm.toasts {
		rendered = append(rendered, tm.render(t))
	}
	return lipgloss.JoinVertical(lipgloss.Right, rendered...)
}
