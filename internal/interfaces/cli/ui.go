package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"upack.dev/cli/internal/config"
	"upack.dev/cli/internal/core/build"
	"upack.dev/cli/internal/core/engine"
	"upack.dev/cli/internal/core/output"
	"upack.dev/cli/internal/core/plugin"
	"upack.dev/cli/internal/infrastructure/watch"
)

// maxLogBytes bounds the in-memory display log; build_log.txt keeps everything
const maxLogBytes = 1 << 20

// NewUICommand creates the ui command
func NewUICommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the interactive build shell",
		Long: `Open the interactive build shell.

Pick the engine root, plugin file and package folder, tick the engine versions
to build for and press ctrl+b. Output of all jobs streams into the log pane.
Diagnostics are written to ~/.upack/upack.log while the shell is open.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationInteractive: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(cmd.Context(), container)
		},
	}
}

// runUI starts the shell and blocks until the user quits
func runUI(ctx context.Context, container *CLIContainer) error {
	sink := &programSink{}
	model := newShellModel(ctx, container, sink)

	program := tea.NewProgram(model, tea.WithAltScreen())
	sink.attach(program)

	final, err := program.Run()
	if m, ok := final.(shellModel); ok && m.watcher != nil {
		m.watcher.Close()
	}
	if err != nil {
		return fmt.Errorf("ui failed: %w", err)
	}

	if live := container.Launcher.Live(); len(live) > 0 {
		container.Logger.WithField("jobs", len(live)).Info("shell closed with builds still running")
	}
	return nil
}

// programSink forwards launcher events and watcher notifications into the
// running program. Sends before attach or after exit are dropped.
type programSink struct {
	mu      sync.Mutex
	program *tea.Program
}

func (s *programSink) attach(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

func (s *programSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// Publish implements build.Sink
func (s *programSink) Publish(e build.Event) {
	s.send(buildEventMsg{event: e})
}

type focusArea int

const (
	focusEngineRoot focusArea = iota
	focusPluginFile
	focusPackageRoot
	focusVersions
	focusBuildButton
	focusCount
)

type versionsDetectedMsg struct {
	root     string
	versions []engine.Version
}

type engineChangedMsg struct {
	root string
}

type buildEventMsg struct {
	event build.Event
}

type launchDoneMsg struct {
	err error
}

type watcherStartedMsg struct {
	watcher *watch.EngineWatcher
	err     error
}

// shellModel holds the state for the Bubble Tea build shell
type shellModel struct {
	ctx       context.Context
	container *CLIContainer
	sink      *programSink

	inputs []textinput.Model
	focus  focusArea

	detectRoot string
	versions   []engine.Version
	checked    map[engine.Version]bool
	cursor     int
	watcher    *watch.EngineWatcher

	log      *strings.Builder
	viewport viewport.Model
	ready    bool
	width    int
	height   int

	notice    string
	launching bool
	running   map[string]engine.Version
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	sectionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.NormalBorder())
	noticeStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("214")).Padding(1, 3)

	logStyles = map[output.Color]lipgloss.Style{
		output.ColorDefault: lipgloss.NewStyle(),
		output.ColorRed:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		output.ColorAmber:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		output.ColorGreen:   lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	}
)

// newShellModel creates a shell prefilled from the configuration
func newShellModel(ctx context.Context, container *CLIContainer, sink *programSink) shellModel {
	cfg := container.Config

	inputs := make([]textinput.Model, 3)
	for i, field := range []struct {
		value       string
		placeholder string
	}{
		{cfg.EngineRoot, "folder containing UE_* installations"},
		{cfg.PluginFile, "MyPlugin.uplugin or its folder"},
		{cfg.PackageRoot, "folder receiving the packages"},
	} {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = field.placeholder
		ti.CharLimit = 1024
		ti.Width = 60
		ti.SetValue(field.value)
		inputs[i] = ti
	}
	inputs[focusEngineRoot].Focus()

	return shellModel{
		ctx:        ctx,
		container:  container,
		sink:       sink,
		inputs:     inputs,
		focus:      focusEngineRoot,
		detectRoot: strings.TrimSpace(cfg.EngineRoot),
		checked:    make(map[engine.Version]bool),
		log:        &strings.Builder{},
		running:    make(map[string]engine.Version),
	}
}

// Init implements the Bubble Tea init method
func (m shellModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.detectRoot != "" {
		cmds = append(cmds, detectVersions(m.container.Detector, m.detectRoot))
	}
	return tea.Batch(cmds...)
}

// Update implements the Bubble Tea update method
func (m shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLog()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case versionsDetectedMsg:
		return m.applyVersions(msg)

	case engineChangedMsg:
		if m.watcher == nil || msg.root != m.watcher.Root() {
			return m, nil
		}
		return m, detectVersions(m.container.Detector, m.detectRoot)

	case watcherStartedMsg:
		if msg.err != nil {
			m.container.Logger.WithError(msg.err).Debug("engine root is not watched")
			return m, nil
		}
		if m.watcher != nil {
			m.watcher.Close()
		}
		m.watcher = msg.watcher
		return m, nil

	case buildEventMsg:
		m.applyEvent(msg.event)
		return m, nil

	case launchDoneMsg:
		m.launching = false
		switch {
		case errors.Is(msg.err, build.ErrMissingInput):
			m.notice = msg.err.Error()
		case msg.err != nil:
			m.appendLog(fmt.Sprintf("Build could not be started: %v\n", msg.err), output.ColorRed)
		}
		return m, nil
	}

	if m.focus <= focusPackageRoot {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m shellModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// The notice blocks every other interaction until acknowledged
	if m.notice != "" {
		if key == "enter" || key == "esc" {
			m.notice = ""
		}
		return m, nil
	}

	switch key {
	case "tab":
		return m.setFocus((m.focus + 1) % focusCount)
	case "shift+tab":
		return m.setFocus((m.focus + focusCount - 1) % focusCount)
	case "ctrl+b":
		return m.startBuild()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch m.focus {
	case focusVersions:
		m.handleGridKey(key)
		return m, nil
	case focusBuildButton:
		if key == "enter" || key == " " {
			return m.startBuild()
		}
		return m, nil
	}

	if key == "enter" {
		if m.focus == focusEngineRoot {
			m.detectRoot = m.inputValue(focusEngineRoot)
			return m, detectVersions(m.container.Detector, m.detectRoot)
		}
		return m.setFocus(m.focus + 1)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m shellModel) setFocus(focus focusArea) (tea.Model, tea.Cmd) {
	// Leaving the engine root field re-detects when its value changed
	var detect tea.Cmd
	if m.focus == focusEngineRoot && focus != focusEngineRoot {
		if root := m.inputValue(focusEngineRoot); root != m.detectRoot {
			m.detectRoot = root
			detect = detectVersions(m.container.Detector, root)
		}
	}

	m.focus = focus
	var cmds []tea.Cmd
	for i := range m.inputs {
		if focusArea(i) == focus {
			cmds = append(cmds, m.inputs[i].Focus())
		} else {
			m.inputs[i].Blur()
		}
	}
	if detect != nil {
		cmds = append(cmds, detect)
	}
	return m, tea.Batch(cmds...)
}

func (m *shellModel) handleGridKey(key string) {
	if len(m.versions) == 0 {
		return
	}
	cols := m.gridColumns()

	switch key {
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor < len(m.versions)-1 {
			m.cursor++
		}
	case "up", "k":
		if m.cursor-cols >= 0 {
			m.cursor -= cols
		}
	case "down", "j":
		if m.cursor+cols < len(m.versions) {
			m.cursor += cols
		}
	case " ", "x", "enter":
		v := m.versions[m.cursor]
		m.checked[v] = !m.checked[v]
	case "a":
		all := true
		for _, v := range m.versions {
			all = all && m.checked[v]
		}
		for _, v := range m.versions {
			m.checked[v] = !all
		}
	}
}

// detectVersions scans root off the update loop
func detectVersions(detector *engine.Detector, root string) tea.Cmd {
	return func() tea.Msg {
		return versionsDetectedMsg{root: root, versions: detector.List(root)}
	}
}

// applyVersions replaces the checkbox grid. Versions that are still present
// keep their checked state.
func (m shellModel) applyVersions(msg versionsDetectedMsg) (tea.Model, tea.Cmd) {
	if msg.root != m.detectRoot {
		return m, nil
	}

	for v := range m.checked {
		if !slices.Contains(msg.versions, v) {
			delete(m.checked, v)
		}
	}
	m.versions = msg.versions
	if m.cursor >= len(m.versions) {
		m.cursor = max(len(m.versions)-1, 0)
	}
	m.resizeLog()

	m.container.Logger.WithField("root", msg.root).WithField("versions", engine.Strings(msg.versions)).Debug("engine versions detected")

	if !m.container.Config.WatchEngineRoot || msg.root == "" {
		return m, nil
	}
	if m.watcher != nil {
		if abs, err := filepath.Abs(msg.root); err == nil && abs == m.watcher.Root() {
			return m, nil
		}
	}
	return m, m.watchCmd(msg.root)
}

func (m shellModel) watchCmd(root string) tea.Cmd {
	ctx, sink, logger := m.ctx, m.sink, m.container.Logger
	return func() tea.Msg {
		w, err := watch.NewEngineWatcher(root, watch.DefaultDebounce, func(r string) {
			sink.send(engineChangedMsg{root: r})
		}, logger)
		if err != nil {
			return watcherStartedMsg{err: err}
		}
		if err := w.Start(ctx); err != nil {
			w.Close()
			return watcherStartedMsg{err: err}
		}
		return watcherStartedMsg{watcher: w}
	}
}

// request collects the current inputs; versions keep grid order
func (m shellModel) request() build.Request {
	req := build.Request{
		EngineRoot:  m.inputValue(focusEngineRoot),
		PluginFile:  m.inputValue(focusPluginFile),
		PackageRoot: m.inputValue(focusPackageRoot),
	}
	for _, v := range m.versions {
		if m.checked[v] {
			req.Versions = append(req.Versions, v)
		}
	}
	return req
}

func (m shellModel) startBuild() (tea.Model, tea.Cmd) {
	if m.launching {
		return m, nil
	}

	req := m.request()
	if err := req.Validate(); err != nil {
		m.notice = err.Error()
		return m, nil
	}

	descriptor, err := plugin.Resolve(req.PluginFile)
	if err != nil {
		m.notice = fmt.Sprintf("Invalid plugin file: %v", err)
		return m, nil
	}
	req.PluginFile = descriptor

	m.launching = true
	ctx, launcher, sink := m.ctx, m.container.Launcher, m.sink
	return m, func() tea.Msg {
		return launchDoneMsg{err: launcher.Launch(ctx, req, sink)}
	}
}

func (m *shellModel) applyEvent(e build.Event) {
	switch {
	case e.Kind == build.EventJobStarted:
		m.running[e.JobID] = e.Version
	case e.IsTerminal():
		delete(m.running, e.JobID)
	}
	m.appendLog(e.Message(), e.Color)
}

// appendLog adds text to the log pane, following the tail when the pane was
// already scrolled to the bottom
func (m *shellModel) appendLog(text string, color output.Color) {
	style, ok := logStyles[color]
	if !ok {
		style = logStyles[output.ColorDefault]
	}
	m.log.WriteString(styleLines(style, strings.ReplaceAll(text, "\r\n", "\n")))

	if m.log.Len() > maxLogBytes {
		content := m.log.String()
		cut := len(content) - maxLogBytes/2
		if i := strings.IndexByte(content[cut:], '\n'); i >= 0 {
			cut += i + 1
		}
		m.log.Reset()
		m.log.WriteString(content[cut:])
	}

	follow := !m.ready || m.viewport.AtBottom()
	m.viewport.SetContent(m.log.String())
	if follow {
		m.viewport.GotoBottom()
	}
}

// styleLines styles each line on its own so a chunk ending mid-line joins
// the next chunk without padding
func styleLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m shellModel) inputValue(f focusArea) string {
	return strings.TrimSpace(m.inputs[f].Value())
}

func (m shellModel) gridColumns() int {
	if m.container.Config.GridColumns > 0 {
		return m.container.Config.GridColumns
	}
	return config.DefaultGridColumns
}

// resizeLog gives the log pane whatever height the form leaves
func (m *shellModel) resizeLog() {
	if m.width == 0 || m.height == 0 {
		return
	}
	height := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.renderFooter())
	height = max(height, 3)

	if !m.ready {
		m.viewport = viewport.New(m.width, height)
		m.viewport.SetContent(m.log.String())
		m.viewport.GotoBottom()
		m.ready = true
		return
	}
	m.viewport.Width = m.width
	m.viewport.Height = height
}

// View implements the Bubble Tea view method
func (m shellModel) View() string {
	if m.notice != "" {
		return m.renderNotice()
	}

	logPane := dimStyle.Render("Initializing...")
	if m.ready {
		logPane = m.viewport.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), logPane, m.renderFooter())
}

func (m shellModel) renderHeader() string {
	labels := []string{"Engine root", "Plugin file", "Package folder"}
	rows := []string{titleStyle.Render("upack - plugin packager"), ""}
	for i, label := range labels {
		marker := "  "
		if m.focus == focusArea(i) {
			marker = "> "
		}
		rows = append(rows, marker+labelStyle.Render(label)+m.inputs[i].View())
	}
	rows = append(rows, "", m.renderVersions(), "", m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m shellModel) renderVersions() string {
	title := sectionStyle.Render(fmt.Sprintf("Engine versions (%d)", len(m.versions)))
	if len(m.versions) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, dimStyle.Render("  No versions found under the engine root"))
	}

	width := 0
	for _, v := range m.versions {
		width = max(width, len(v))
	}

	cols := m.gridColumns()
	rows := []string{title}
	var cells []string
	for i, v := range m.versions {
		box := "[ ]"
		if m.checked[v] {
			box = "[x]"
		}
		cell := fmt.Sprintf("%s %-*s", box, width, v)
		if m.focus == focusVersions && i == m.cursor {
			cell = cursorStyle.Render(cell)
		}
		cells = append(cells, cell+"  ")

		if len(cells) == cols || i == len(m.versions)-1 {
			rows = append(rows, "  "+strings.Join(cells, ""))
			cells = nil
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m shellModel) renderStatus() string {
	button := buttonStyle
	switch {
	case m.launching:
		button = button.Foreground(lipgloss.Color("240"))
	case m.focus == focusBuildButton:
		button = button.BorderForeground(lipgloss.Color("86")).Bold(true)
	}

	status := dimStyle.Render("idle")
	if len(m.running) > 0 {
		names := make([]string, 0, len(m.running))
		for _, v := range m.running {
			names = append(names, v.String())
		}
		sort.Strings(names)
		status = fmt.Sprintf("running: %s", strings.Join(names, ", "))
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, button.Render("Build"), "  ", status)
}

func (m shellModel) renderFooter() string {
	return dimStyle.Render("[Tab] Next  [Enter] Detect/Confirm  [Space] Toggle  [a] All  [Ctrl+B] Build  [PgUp/PgDn] Scroll  [Ctrl+C] Quit")
}

func (m shellModel) renderNotice() string {
	box := noticeStyle.Render(m.notice + "\n\n" + dimStyle.Render("[Enter] OK"))
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}
