package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ByteMirror/highlander/arena"
	"github.com/ByteMirror/highlander/config"
	"github.com/ByteMirror/highlander/keys"
	"github.com/ByteMirror/highlander/log"
	"github.com/ByteMirror/highlander/report"
	"github.com/ByteMirror/highlander/ui"
	"github.com/ByteMirror/highlander/ui/overlay"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// checkTimeout bounds how long a pause & check waits for workers to park.
const checkTimeout = 10 * time.Second

// Run is the main entrypoint into the application.
func Run(ctx context.Context, cfg *config.Config) error {
	manager := arena.NewManager()
	defer func() {
		if err := manager.Stop(); err != nil {
			log.WarningLog.Printf("stopping simulation on exit: %v", err)
		}
	}()

	p := tea.NewProgram(newHome(ctx, cfg, manager), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type state int

const (
	stateDefault state = iota
	// stateHelp is the state when the help screen is displayed.
	stateHelp
	// stateReport is the state when the last invariant report is displayed.
	stateReport
	// stateEdit is the state when the next run's parameters are being edited.
	stateEdit
)

type home struct {
	ctx context.Context

	// -- Configuration --

	appConfig *config.Config
	// sim holds the parameters the next start uses. Mode and count are
	// edited from the keyboard and saved on quit.
	sim config.Simulation

	manager *arena.Manager

	// -- State --

	state state
	// busy is set while a start, check or stop runs in the background.
	busy bool
	// keySent is used to manage underlining menu items
	keySent bool
	// checkToast is the loading toast of the check in flight.
	checkToast string
	lastReport *report.Report

	// -- UI Components --

	menu         *ui.Menu
	status       *ui.StatusPanel
	spinner      spinner.Model
	toastManager *overlay.ToastManager
	textOverlay  *overlay.TextOverlay
	inputOverlay *overlay.SingleLineInputOverlay

	width, height int
}

func newHome(ctx context.Context, cfg *config.Config, manager *arena.Manager) *home {
	h := &home{
		ctx:       ctx,
		appConfig: cfg,
		sim:       cfg.Simulation,
		manager:   manager,
		menu:      ui.NewMenu(),
		spinner:   spinner.New(spinner.WithSpinner(spinner.MiniDot)),
	}
	h.status = ui.NewStatusPanel(&h.spinner)
	h.toastManager = overlay.NewToastManager(&h.spinner)
	h.refreshStatus()
	return h
}

// updateHandleWindowSizeEvent sets the sizes of the components.
func (m *home) updateHandleWindowSizeEvent(msg tea.WindowSizeMsg) {
	m.width, m.height = msg.Width, msg.Height

	menuHeight := 3
	m.status.SetSize(msg.Width, msg.Height-menuHeight)
	m.menu.SetSize(msg.Width, menuHeight)
	m.toastManager.SetSize(msg.Width, msg.Height)
	if m.textOverlay != nil {
		m.textOverlay.SetWidth(int(float32(msg.Width) * 0.6))
	}
	if m.inputOverlay != nil {
		m.inputOverlay.SetWidth(int(float32(msg.Width) * 0.4))
	}
}

func (m *home) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.refreshTickCmd())
}

func (m *home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshTickMsg:
		m.refreshStatus()
		return m, m.refreshTickCmd()
	case keyupMsg:
		m.menu.ClearKeydown()
		return m, nil
	case overlay.ToastTickMsg:
		m.toastManager.Tick()
		if m.toastManager.HasActiveToasts() {
			return m, m.toastTickCmd()
		}
		return m, nil
	case startDoneMsg:
		return m, m.handleStartDone(msg)
	case checkDoneMsg:
		return m, m.handleCheckDone(msg)
	case stopDoneMsg:
		m.busy = false
		m.refreshStatus()
		if msg.err != nil {
			return m, m.handleError(fmt.Errorf("stop: %w", msg.err))
		}
		m.toastManager.Info("simulation stopped")
		return m, m.toastTickCmd()
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.updateHandleWindowSizeEvent(msg)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *home) View() string {
	if m.inputOverlay != nil && m.state == stateEdit {
		return m.inputOverlay.Place(m.width, m.height)
	}
	if m.textOverlay != nil && m.state != stateDefault {
		return m.textOverlay.Place(m.width, m.height)
	}

	parts := []string{m.status.View()}
	if toasts := m.toastManager.View(); toasts != "" {
		parts = append(parts, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, toasts))
	}
	parts = append(parts, m.menu.String())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// refreshStatus copies the manager's state into the status panel and menu.
// Health values are best-effort while the run is not paused.
func (m *home) refreshStatus() {
	status := ui.Status{
		RunID:         m.manager.RunID(),
		Running:       m.manager.Running(),
		State:         m.manager.State(),
		Mode:          m.sim.FightMode,
		Count:         m.sim.Count,
		InitialHealth: m.sim.InitialHealth,
		Damage:        m.sim.Damage,
		Fights:        m.manager.ScoreboardTotal(),
		Expected:      m.manager.ExpectedTotalHealth(),
		Total:         m.manager.TotalHealth(),
		Alive:         m.manager.AliveCount(),
		Metrics:       m.manager.Metrics(),
		Combatants:    m.manager.PopulationSnapshot(),
	}
	status.Active, status.Parked = m.manager.Counts()
	if cfg, ok := m.manager.Config(); ok {
		status.InitialHealth = cfg.InitialHealth
		status.Damage = cfg.Damage
	}
	m.status.SetStatus(status)

	switch {
	case m.busy:
		m.menu.SetState(ui.StateBusy)
	case !status.Running:
		m.menu.SetState(ui.StateIdle)
	case m.manager.Paused():
		m.menu.SetState(ui.StatePaused)
	default:
		m.menu.SetState(ui.StateRunning)
	}
}

func (m *home) handleQuit() (tea.Model, tea.Cmd) {
	if m.sim != m.appConfig.Simulation {
		m.appConfig.Simulation = m.sim
		if err := config.SaveConfig(m.appConfig); err != nil {
			log.ErrorLog.Printf("failed to save config: %v", err)
		}
	}
	return m, tea.Quit
}

func (m *home) handleMenuHighlighting(msg tea.KeyMsg) (cmd tea.Cmd, returnEarly bool) {
	// Handle menu highlighting when you press a button. We intercept it here and immediately return to
	// update the ui while re-sending the keypress. Then, on the next call to this, we actually handle the keypress.
	if m.keySent {
		m.keySent = false
		return nil, false
	}
	if m.state != stateDefault {
		return nil, false
	}
	name, ok := keys.GlobalKeyStringsMap[msg.String()]
	if !ok || name == keys.KeyQuit {
		return nil, false
	}

	m.keySent = true
	return tea.Batch(
		func() tea.Msg { return msg },
		m.keydownCallback(name)), true
}

func (m *home) handleKeyPress(msg tea.KeyMsg) (mod tea.Model, cmd tea.Cmd) {
	cmd, returnEarly := m.handleMenuHighlighting(msg)
	if returnEarly {
		return m, cmd
	}

	if m.state == stateEdit {
		return m, m.handleEditKey(msg)
	}
	if m.state == stateHelp || m.state == stateReport {
		if m.textOverlay == nil || m.textOverlay.HandleKeyPress(msg) {
			m.state = stateDefault
			m.textOverlay = nil
		}
		return m, nil
	}

	name, ok := keys.GlobalKeyStringsMap[msg.String()]
	if !ok {
		return m, nil
	}
	if m.busy && name != keys.KeyQuit {
		return m, nil
	}

	switch name {
	case keys.KeyQuit:
		return m.handleQuit()
	case keys.KeyStart:
		m.busy = true
		m.refreshStatus()
		return m, m.startCmd()
	case keys.KeyCheck:
		if !m.manager.Running() {
			return m, m.handleError(errors.New("start a simulation first"))
		}
		m.busy = true
		m.checkToast = m.toastManager.Loading("pausing, waiting for every worker to park")
		m.refreshStatus()
		return m, tea.Batch(m.checkCmd(), m.toastTickCmd())
	case keys.KeyPause:
		m.manager.Pause()
	case keys.KeyResume:
		m.manager.Resume()
	case keys.KeyStop:
		if !m.manager.Running() {
			return m, nil
		}
		m.busy = true
		m.refreshStatus()
		return m, m.stopCmd()
	case keys.KeyMode:
		if m.sim.FightMode == config.FightModeNaive {
			m.sim.FightMode = config.FightModeOrdered
		} else {
			m.sim.FightMode = config.FightModeNaive
		}
		m.toastManager.Info(fmt.Sprintf("next start uses %s fights", m.sim.FightMode))
		m.refreshStatus()
		return m, m.toastTickCmd()
	case keys.KeyMore:
		m.sim.Count = min(m.sim.Count+1, arena.MaxPopulation)
	case keys.KeyFewer:
		m.sim.Count = max(m.sim.Count-1, 1)
	case keys.KeyEdit:
		m.state = stateEdit
		m.inputOverlay = overlay.NewSingleLineInputOverlay("Next run", "count health damage",
			fmt.Sprintf("%d %d %d", m.sim.Count, m.sim.InitialHealth, m.sim.Damage))
		m.inputOverlay.SetWidth(int(float32(m.width) * 0.4))
		return m, nil
	case keys.KeyCopy:
		return m, m.copyReport()
	case keys.KeyDetails:
		m.status.ToggleDetails()
		return m, nil
	case keys.KeyHelp:
		m.showOverlay(stateHelp, "Highlander", helpText(), false)
		return m, nil
	}

	m.refreshStatus()
	return m, nil
}

// handleEditKey feeds the parameter prompt and applies a valid submission.
func (m *home) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	if !m.inputOverlay.HandleKeyPress(msg) {
		return nil
	}
	if m.inputOverlay.IsSubmitted() {
		sim, err := parseParams(m.inputOverlay.Value(), m.sim)
		if err != nil {
			m.inputOverlay.SetError(err.Error())
			return nil
		}
		m.sim = sim
		m.toastManager.Info(fmt.Sprintf("next start: %d combatants, health %d, damage %d",
			sim.Count, sim.InitialHealth, sim.Damage))
	}
	m.state = stateDefault
	m.inputOverlay = nil
	m.refreshStatus()
	return m.toastTickCmd()
}

// parseParams reads "count health damage" over base and validates the result.
func parseParams(value string, base config.Simulation) (config.Simulation, error) {
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return base, fmt.Errorf("expected count, health and damage, got %d values", len(fields))
	}

	nums := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return base, fmt.Errorf("%q is not a number", f)
		}
		nums[i] = n
	}

	sim := base
	sim.Count, sim.InitialHealth, sim.Damage = nums[0], nums[1], nums[2]
	if err := sim.Validate(); err != nil {
		return base, err
	}
	return sim, nil
}

// startCmd starts a run off the update loop. Start stops any previous run
// first, which can take up to its stop grace period.
func (m *home) startCmd() tea.Cmd {
	ctx, manager, sim := m.ctx, m.manager, m.sim
	return func() tea.Msg {
		return startDoneMsg{sim: sim, err: manager.Start(ctx, sim)}
	}
}

func (m *home) handleStartDone(msg startDoneMsg) tea.Cmd {
	m.busy = false
	m.refreshStatus()
	if msg.err != nil {
		return m.handleError(msg.err)
	}
	m.lastReport = nil
	m.toastManager.Info(fmt.Sprintf("started %d combatants, %s fights", msg.sim.Count, msg.sim.FightMode))
	return m.toastTickCmd()
}

func (m *home) checkCmd() tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, checkTimeout)
		defer cancel()
		r, err := report.Check(ctx, manager)
		return checkDoneMsg{report: r, err: err}
	}
}

func (m *home) handleCheckDone(msg checkDoneMsg) tea.Cmd {
	m.busy = false
	m.refreshStatus()
	if msg.err != nil {
		log.ErrorLog.Printf("invariant check failed: %v", msg.err)
		m.toastManager.Resolve(m.checkToast, overlay.ToastError, fmt.Sprintf("check failed: %v", msg.err))
		return m.toastTickCmd()
	}

	m.lastReport = msg.report
	if msg.report.Holds {
		m.toastManager.Resolve(m.checkToast, overlay.ToastSuccess, msg.report.Verdict())
	} else {
		m.toastManager.Resolve(m.checkToast, overlay.ToastError, msg.report.Verdict())
	}
	m.showOverlay(stateReport, "", report.Text(msg.report, false)+"\npress r after closing to resume", !msg.report.Holds)
	return m.toastTickCmd()
}

func (m *home) stopCmd() tea.Cmd {
	manager := m.manager
	return func() tea.Msg {
		return stopDoneMsg{err: manager.Stop()}
	}
}

// copyReport puts the last report on the clipboard as YAML.
func (m *home) copyReport() tea.Cmd {
	if m.lastReport == nil {
		return m.handleError(errors.New("no report yet, press p to check"))
	}
	data, err := report.YAML(m.lastReport.Summary())
	if err != nil {
		return m.handleError(err)
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		return m.handleError(fmt.Errorf("copy report: %w", err))
	}
	m.toastManager.Success("report copied to clipboard")
	return m.toastTickCmd()
}

func (m *home) showOverlay(s state, title, content string, alert bool) {
	m.state = s
	m.textOverlay = overlay.NewTextOverlay(title, content)
	m.textOverlay.SetAlert(alert)
	m.textOverlay.SetWidth(int(float32(m.width) * 0.6))
}

type keyupMsg struct{}

// keydownCallback clears the menu option highlighting after 500ms.
func (m *home) keydownCallback(name keys.KeyName) tea.Cmd {
	m.menu.Keydown(name)
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
		case <-time.After(500 * time.Millisecond):
		}

		return keyupMsg{}
	}
}

// refreshTickMsg redraws the status panel.
type refreshTickMsg struct{}

func (m *home) refreshTickCmd() tea.Cmd {
	return tea.Tick(m.appConfig.Refresh(), func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func (m *home) toastTickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return overlay.ToastTickMsg{}
	})
}

type startDoneMsg struct {
	sim config.Simulation
	err error
}

type checkDoneMsg struct {
	report *report.Report
	err    error
}

type stopDoneMsg struct {
	err error
}

func (m *home) handleError(err error) tea.Cmd {
	log.ErrorLog.Printf("%v", err)
	m.toastManager.Error(err.Error())
	return m.toastTickCmd()
}
