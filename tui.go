package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"chord/clipboard"
	"chord/event"
	"chord/hotkey"
	"chord/input"
	"chord/log"
)

// TUI message types
type eventMsg struct{ ev event.Event }
type bindingsMsg struct{ bindings []hotkey.Binding }
type previewMsg struct{ text string }
type noticeMsg struct{ text string }
type statusMsg struct {
	text string
	err  bool
}

type tuiState int

const (
	tuiStateIdle tuiState = iota
	tuiStateRecording
	tuiStateCaptured
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	selectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	modeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

// tuiApp is the EventSink side of the terminal UI. The model runs on the
// Bubble Tea goroutine and reaches the host only through commands, so the
// frame loop never waits on Update.
type tuiApp struct {
	program *tea.Program
	host    *host
	tracker *input.Tracker
	path    string

	mu   sync.Mutex
	keys *input.Evdev
}

func newTUIApp(path string) *tuiApp {
	a := &tuiApp{path: path}
	a.program = tea.NewProgram(tuiModel{app: a, activations: map[hotkey.BindingID]int{}}, tea.WithAltScreen())
	return a
}

func (a *tuiApp) attach(h *host, tracker *input.Tracker) {
	a.host = h
	a.tracker = tracker
}

func (a *tuiApp) run() error {
	_, err := a.program.Run()
	a.closeKeyboards()()
	return err
}

func (a *tuiApp) Event(ev event.Event)         { a.program.Send(eventMsg{ev}) }
func (a *tuiApp) Bindings(bs []hotkey.Binding) { a.program.Send(bindingsMsg{bs}) }
func (a *tuiApp) Preview(text string)          { a.program.Send(previewMsg{text}) }
func (a *tuiApp) Notice(text string)           { a.program.Send(noticeMsg{text}) }

// onHost runs fn on the frame loop from a command goroutine.
func (a *tuiApp) onHost(fn func(h *host)) tea.Cmd {
	return func() tea.Msg {
		a.host.do(func() { fn(a.host) })
		return nil
	}
}

// startRecording prefers reading the keyboards directly so the combination
// can include Super and keys the terminal swallows.
func (a *tuiApp) startRecording() tea.Cmd {
	return func() tea.Msg {
		a.mu.Lock()
		if a.keys == nil {
			if keys, err := input.OpenKeyboards(a.tracker); err == nil {
				a.keys = keys
			} else {
				log.Info("recording from the terminal: " + err.Error())
			}
		}
		a.mu.Unlock()
		a.host.do(func() { a.host.startRecording() })
		return nil
	}
}

func (a *tuiApp) closeKeyboards() tea.Cmd {
	return func() tea.Msg {
		a.mu.Lock()
		if a.keys != nil {
			a.keys.Close()
			a.keys = nil
		}
		a.mu.Unlock()
		return nil
	}
}

// capturing reports whether the keyboards are read directly.
func (a *tuiApp) capturing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.keys != nil
}

type tuiModel struct {
	app           *tuiApp
	state         tuiState
	width, height int

	bindings    []hotkey.Binding
	cursor      int
	preview     string
	captured    hotkey.Definition
	conflict    string
	disabled    string
	status      string
	statusErr   bool
	activations map[hotkey.BindingID]int
	lastActive  hotkey.BindingID
	lastAt      time.Time
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) selected() (hotkey.Binding, bool) {
	if m.cursor < 0 || m.cursor >= len(m.bindings) {
		return hotkey.Binding{}, false
	}
	return m.bindings[m.cursor], true
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		return m.key(msg)

	case bindingsMsg:
		m.bindings = msg.bindings
		if m.cursor >= len(m.bindings) {
			m.cursor = max(len(m.bindings)-1, 0)
		}

	case previewMsg:
		m.preview = msg.text

	case noticeMsg:
		m.status, m.statusErr = msg.text, true

	case statusMsg:
		m.status, m.statusErr = msg.text, msg.err

	case eventMsg:
		return m.event(msg.ev)
	}
	return m, nil
}

func (m tuiModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return m, tea.Quit
	}

	if m.state == tuiStateRecording {
		if !m.app.capturing() {
			if mods, key, ok := input.ParseTerminalKey(k); ok {
				m.app.tracker.Tap(mods, key)
			}
		}
		return m, nil
	}

	switch k {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.bindings)-1 {
			m.cursor++
		}
	case "r":
		m.state = tuiStateRecording
		m.captured = hotkey.Definition{}
		m.conflict = ""
		m.status = ""
		return m, m.app.startRecording()
	case "esc":
		if m.state == tuiStateCaptured {
			m.state = tuiStateIdle
			m.captured = hotkey.Definition{}
			m.conflict = ""
		}
	case "enter":
		if m.state != tuiStateCaptured {
			return m, nil
		}
		b := hotkey.NewBinding(hotkey.NewBindingID(), m.captured.WithDescription("recorded in chord"))
		m.state = tuiStateIdle
		m.captured = hotkey.Definition{}
		m.conflict = ""
		return m, m.app.onHost(func(h *host) { h.add(b) })
	case "t":
		def := m.captured
		if def.IsZero() {
			b, ok := m.selected()
			if !ok {
				return m, nil
			}
			def = b.Definition
		}
		return m, m.app.onHost(func(h *host) { h.submit(event.TestRequested{Definition: def}) })
	case "u":
		b, ok := m.selected()
		if !ok {
			return m, nil
		}
		if b.Status.State == hotkey.Registered {
			return m, m.app.onHost(func(h *host) { h.submit(event.UnregisterRequested{BindingID: b.ID}) })
		}
		return m, m.app.onHost(func(h *host) { h.submit(event.RegisterRequested{Binding: b}) })
	case "x", "delete":
		b, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.app.onHost(func(h *host) { h.remove(b.ID) })
	case "c":
		def := m.captured
		if def.IsZero() {
			b, ok := m.selected()
			if !ok {
				return m, nil
			}
			def = b.Definition
		}
		return m, copyCmd(def)
	}
	return m, nil
}

func copyCmd(def hotkey.Definition) tea.Cmd {
	return func() tea.Msg {
		text, err := clipboard.CopyDefinition(def)
		if err != nil {
			return statusMsg{text: err.Error(), err: true}
		}
		return statusMsg{text: "copied " + text}
	}
}

func (m tuiModel) event(ev event.Event) (tea.Model, tea.Cmd) {
	switch ev := ev.(type) {
	case event.KeyCombinationCaptured:
		m.state = tuiStateCaptured
		m.captured = ev.Definition
		return m, m.app.closeKeyboards()
	case event.ConflictDetected:
		m.conflict = ev.Record.String()
	case event.RecordingCancelled:
		m.state = tuiStateIdle
		m.status, m.statusErr = "recording cancelled ("+ev.Reason+")", false
		return m, m.app.closeKeyboards()
	case event.HotkeyActivated:
		m.activations[ev.BindingID]++
		m.lastActive = ev.BindingID
		m.lastAt = time.Now()
	case event.HotkeysDisabled:
		m.disabled = ev.Reason
	case event.RegisterCompleted:
		if ev.Success {
			m.status, m.statusErr = "registered "+ev.Binding.Definition.Display(), false
		} else {
			m.status, m.statusErr = ev.ErrorMessage, true
		}
	case event.UnregisterCompleted:
		if ev.Success {
			m.status, m.statusErr = "released", false
		} else {
			m.status, m.statusErr = ev.ErrorMessage, true
		}
	case event.TestResult:
		if ev.Success {
			m.status, m.statusErr = ev.Definition.Display()+" is available", false
		} else {
			m.status, m.statusErr = ev.ErrorMessage, true
		}
	}
	return m, nil
}

func stateText(st hotkey.Status) string {
	switch st.State {
	case hotkey.Registered:
		return okStyle.Render("● registered")
	case hotkey.Failed:
		return errStyle.Render("✗ failed")
	case hotkey.PendingRegistration, hotkey.PendingUnregistration:
		return warnStyle.Render("… " + st.State.String())
	}
	return dimStyle.Render("○ idle")
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const listWidth = 46
	var left strings.Builder
	left.WriteString(titleStyle.Render(fmt.Sprintf("Hotkeys (%d)", len(m.bindings))) + "\n\n")
	if len(m.bindings) == 0 {
		left.WriteString(dimStyle.Render("No hotkeys yet. Press r to record one.") + "\n")
	}
	for i, b := range m.bindings {
		name := b.Definition.Display()
		if b.Definition.Description() != "" {
			name += "  " + dimStyle.Render(b.Definition.Description())
		}
		line := "  " + name
		if i == m.cursor {
			line = selectStyle.Render("▶ "+b.Definition.Display()) + strings.TrimPrefix(name, b.Definition.Display())
		}
		left.WriteString(line + "\n")
		meta := "    " + stateText(b.Status)
		if n := m.activations[b.ID]; n > 0 {
			meta += dimStyle.Render(fmt.Sprintf("  pressed %d×", n))
		}
		left.WriteString(meta + "\n")
	}

	var right strings.Builder
	wrapWidth := max(m.width-listWidth-3, 10)

	if m.disabled != "" {
		right.WriteString(errStyle.Render("Global hotkeys are disabled") + "\n")
		for _, line := range wrapText(m.disabled, wrapWidth) {
			right.WriteString(warnStyle.Render(line) + "\n")
		}
		right.WriteString("\n")
	}

	switch m.state {
	case tuiStateRecording:
		right.WriteString(recStyle.Render("● RECORDING") + "\n")
		preview := m.preview
		if preview == "" {
			preview = "press a combination, Esc to cancel"
		}
		right.WriteString(modeStyle.Render(preview) + "\n")
		if !m.app.capturing() {
			right.WriteString(dimStyle.Render("(terminal capture: Super is not visible)") + "\n")
		}
	case tuiStateCaptured:
		right.WriteString(titleStyle.Render("Captured") + "\n\n")
		right.WriteString(selectStyle.Render(m.captured.Display()) + "\n")
		if m.conflict != "" {
			for _, line := range wrapText(m.conflict, wrapWidth) {
				right.WriteString(warnStyle.Render("⚠ "+line) + "\n")
			}
		}
		right.WriteString("\n" + helpKeyStyle.Render("enter") + helpStyle.Render(" save  ") +
			helpKeyStyle.Render("t") + helpStyle.Render(" test  ") +
			helpKeyStyle.Render("esc") + helpStyle.Render(" discard") + "\n")
	default:
		right.WriteString(dimStyle.Render("○ STANDBY") + "\n")
	}

	if m.lastActive != "" && time.Since(m.lastAt) < 3*time.Second {
		if b, ok := m.find(m.lastActive); ok {
			right.WriteString("\n" + okStyle.Render("▶ "+b.Definition.Display()+" pressed") + "\n")
		}
	}

	if m.status != "" {
		right.WriteString("\n")
		style := modeStyle
		if m.statusErr {
			style = errStyle
		}
		for _, line := range wrapText(m.status, wrapWidth) {
			right.WriteString(style.Render(line) + "\n")
		}
	}

	right.WriteString("\n" + helpStyle.Render(m.app.path) + "\n")
	right.WriteString(helpKeyStyle.Render("r") + helpStyle.Render(" record  ") +
		helpKeyStyle.Render("u") + helpStyle.Render(" (un)register  ") +
		helpKeyStyle.Render("t") + helpStyle.Render(" test  ") +
		helpKeyStyle.Render("c") + helpStyle.Render(" copy  ") +
		helpKeyStyle.Render("x") + helpStyle.Render(" delete  ") +
		helpKeyStyle.Render("q") + helpStyle.Render(" quit") + "\n")
	right.WriteString(helpStyle.Render("chord "+version) + "\n")

	leftPanel := lipgloss.NewStyle().Width(listWidth).Height(m.height).Render(left.String())
	rightPanel := lipgloss.NewStyle().Width(m.width - listWidth - 1).Height(m.height).PaddingLeft(1).Render(right.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

func (m tuiModel) find(id hotkey.BindingID) (hotkey.Binding, bool) {
	for _, b := range m.bindings {
		if b.ID == id {
			return b, true
		}
	}
	return hotkey.Binding{}, false
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		// Find last space within width
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
