package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/tribute-engine/internal/handlers"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
	"github.com/muesli/reflow/wordwrap"
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config         *ConsoleConfig
	client         *http.Client
	state          *sim.State
	lines          []narrative.Line
	summary        []roster.SummaryRow
	storyViewport  viewport.Model
	statusViewport viewport.Model
	ready          bool
	width          int
	height         int
	err            error
	loading        bool
	autoplay       bool
	notice         string

	// Roster selection state
	showRosterModal bool
	rosters         []string
	rosterMap       map[string]string
	selectedRoster  int
	loadingRosters  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type rostersLoadedMsg struct {
	rosters   []string
	rosterMap map[string]string
	err       error
}

type simulationCreatedMsg struct {
	state *sim.State
	err   error
}

type advanceMsg struct {
	resp *handlers.AdvanceResponse
	err  error
}

type copiedMsg struct {
	err error
}

type progressTickMsg struct{}

type autoTickMsg struct{}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	statusPanelStyle = lipgloss.NewStyle().
				PaddingTop(2).
				PaddingBottom(0).
				PaddingLeft(0).
				PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	aliveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	fallenStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Italic(true)

	deadStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")). // dark grey
			Strikethrough(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	statusVp := viewport.New(20, 20)
	statusVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:          cfg,
		client:          client,
		storyViewport:   storyVp,
		statusViewport:  statusVp,
		showRosterModal: true,
		loadingRosters:  true,
	}
}

// renderLine styles one narrative line for the story panel.
func renderLine(line narrative.Line, width int) string {
	text := wordwrap.String(line.Text, max(width, 10))
	switch line.Kind {
	case narrative.KindTitle:
		return "\n" + dayStyle.Render(text)
	case narrative.KindFallen:
		return fallenStyle.Render(text)
	default:
		return text
	}
}

// plainTranscript is the unstyled story used for the clipboard.
func plainTranscript(lines []narrative.Line, summary []roster.SummaryRow) string {
	var b strings.Builder
	for _, line := range lines {
		if line.Kind == narrative.KindTitle && b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	if len(summary) > 0 {
		b.WriteString("\n")
		b.WriteString(sim.FormatSummary(summary))
		b.WriteString("\n")
	}
	return b.String()
}

func writeStatus(st *sim.State) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("THE ARENA") + "\n\n")
	if st == nil {
		return content.String()
	}

	content.WriteString("Simulation:\n")
	content.WriteString(st.ID.String()[:8] + "...\n\n")

	content.WriteString(fmt.Sprintf("Day %d, round %d\n", st.Scheduler.Day, st.Rounds))
	if st.Tributes != nil {
		content.WriteString(fmt.Sprintf("%d of %d alive\n\n", st.Tributes.NAlive(), st.Tributes.Len()))
		for _, t := range st.Tributes.Tributes() {
			if t.Alive {
				content.WriteString(aliveStyle.Render("● "+t.Name) + fmt.Sprintf(" (%d)\n", t.Kills))
			} else {
				content.WriteString(deadStyle.Render("✖ "+t.Name) + promptStyle.Render(fmt.Sprintf(" day %d\n", t.DeathDay)))
			}
		}
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Next round\n")
	content.WriteString("• a: Autoplay\n")
	content.WriteString("• c: Copy story\n")
	content.WriteString("• r: New roster\n")
	content.WriteString("• q: Quit\n")

	return content.String()
}

// writeStory rebuilds the story panel for the current viewport width.
func (m *ConsoleUI) writeStory() {
	storyWidth := m.storyViewport.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("TRIBUTE ENGINE") + "\n\n")
	content.WriteString("Press Enter to play each round. May the odds be ever in your favor.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(storyWidth-6, 1))) + "\n")

	for _, line := range m.lines {
		content.WriteString(renderLine(line, storyWidth) + "\n")
	}

	if len(m.summary) > 0 {
		content.WriteString("\n" + titleStyle.Render("RESULTS") + "\n\n")
		content.WriteString(sim.FormatSummary(m.summary) + "\n")
	}

	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.notice != "" {
		content.WriteString("\n" + promptStyle.Render(m.notice) + "\n")
	}
	if m.loading {
		content.WriteString("\n" + m.renderProgressBar())
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

func (m *ConsoleUI) resize() {
	storyWidth := int(float64(m.width)*0.70) - 4
	statusWidth := m.width - storyWidth - 6
	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = m.height - 5
	m.statusViewport.Width = statusWidth - 2
	m.statusViewport.Height = m.height - 4
}

func (m ConsoleUI) finished() bool {
	return m.state != nil && m.state.Done
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadRosters()
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showRosterModal {
		return m.updateRosterModal(msg)
	}

	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		vpCmd tea.Cmd
		svCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		m.statusViewport, svCmd = m.statusViewport.Update(msg)
		return m, tea.Batch(vpCmd, svCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeStory()
		m.statusViewport.SetContent(writeStatus(m.state))

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.showQuitModal = true
			return m, nil
		case "enter", " ", "n":
			return m.advance()
		case "a":
			m.autoplay = !m.autoplay
			m.notice = ""
			if m.autoplay {
				m.notice = "Autoplay on"
				m.writeStory()
				return m.advance()
			}
			m.notice = "Autoplay off"
			m.writeStory()
			return m, nil
		case "c":
			return m, copyTranscript(plainTranscript(m.lines, m.summary))
		case "r":
			if m.loading {
				return m, nil
			}
			cmds := []tea.Cmd{m.loadRosters()}
			if m.state != nil {
				cmds = append(cmds, m.deleteSimulation())
			}
			m.autoplay = false
			m.state = nil
			m.showRosterModal = true
			m.loadingRosters = true
			m.err = nil
			return m, tea.Batch(cmds...)
		}

	case advanceMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.autoplay = false
		} else {
			m.err = nil
			m.lines = append(m.lines, msg.resp.Lines...)
			m.state = msg.resp.State
			if msg.resp.Result.Done {
				m.summary = msg.resp.Summary
				m.autoplay = false
			}
			m.statusViewport.SetContent(writeStatus(m.state))
		}
		m.writeStory()
		if m.autoplay && !m.finished() {
			return m, autoTick(m.config.AutoInterval)
		}
		return m, nil

	case autoTickMsg:
		if m.autoplay {
			return m.advance()
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.notice = "Copy failed: " + msg.err.Error()
		} else {
			m.notice = "Story copied to clipboard"
		}
		m.writeStory()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeStory()
			return m, progressTick()
		}
	}

	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.statusViewport, svCmd = m.statusViewport.Update(msg)

	return m, tea.Batch(vpCmd, svCmd)
}

func (m ConsoleUI) advance() (tea.Model, tea.Cmd) {
	if m.loading || m.state == nil || m.finished() {
		return m, nil
	}
	m.loading = true
	m.progressTick = 0
	m.writeStory()
	return m, tea.Batch(m.advanceSimulation(), progressTick())
}

func (m ConsoleUI) advanceSimulation() tea.Cmd {
	id := m.state.ID
	return func() tea.Msg {
		resp, err := advanceSimulation(m.client, m.config.APIBaseURL, id)
		return advanceMsg{resp, err}
	}
}

// deleteSimulation discards the current simulation on the server. Failures
// are ignored; the snapshot expires on its own.
func (m ConsoleUI) deleteSimulation() tea.Cmd {
	id := m.state.ID
	return func() tea.Msg {
		_ = deleteSimulation(m.client, m.config.APIBaseURL, id)
		return nil
	}
}

func (m ConsoleUI) loadRosters() tea.Cmd {
	return func() tea.Msg {
		orderedNames, rosterMap, err := listRosters(m.client, m.config.APIBaseURL)
		return rostersLoadedMsg{orderedNames, rosterMap, err}
	}
}

func (m ConsoleUI) createSimulationFromRoster(rosterFile string) tea.Cmd {
	return func() tea.Msg {
		st, err := createSimulation(m.client, m.config.APIBaseURL, rosterFile)
		return simulationCreatedMsg{st, err}
	}
}

func copyTranscript(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{clipboard.WriteAll(text)}
	}
}

func (m ConsoleUI) updateRosterModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case rostersLoadedMsg:
		m.loadingRosters = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.rosters = msg.rosters
			m.rosterMap = msg.rosterMap
			if m.selectedRoster >= len(m.rosters) {
				m.selectedRoster = 0
			}
		}

	case simulationCreatedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.state = msg.state
		m.lines = nil
		m.summary = nil
		m.notice = ""
		m.showRosterModal = false
		if m.width > 0 && m.height > 0 {
			m.resize()
		}
		m.ready = true
		m.writeStory()
		m.statusViewport.SetContent(writeStatus(m.state))
		return m, nil

	case tea.KeyMsg:
		if m.loadingRosters {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			m.showRosterModal = false
			return m, nil
		case tea.KeyUp:
			if m.selectedRoster > 0 {
				m.selectedRoster--
			}
		case tea.KeyDown:
			if m.selectedRoster < len(m.rosters)-1 {
				m.selectedRoster++
			}
		case tea.KeyEnter:
			if m.err == nil && len(m.rosters) > 0 && !m.loading {
				rosterFile := m.rosterMap[m.rosters[m.selectedRoster]]
				m.loading = true
				return m, m.createSimulationFromRoster(rosterFile)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if m.state == nil {
					m.showRosterModal = true
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Arena?"))
	content.WriteString("\n\n")
	content.WriteString("The simulation stays saved on the server until it expires.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderRosterModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingRosters:
		content.WriteString(modalTitleStyle.Render("Loading Rosters..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Please wait while we fetch available rosters..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to start: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	case m.loading:
		content.WriteString(modalTitleStyle.Render("Reaping Tributes..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Setting up the arena..."))
	default:
		content.WriteString(modalTitleStyle.Render("Select a Roster"))
		content.WriteString("\n\n")

		for i, name := range m.rosters {
			if i == m.selectedRoster {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", name)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", name)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showRosterModal {
		return m.renderRosterModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.70) - 4
	statusWidth := m.width - storyWidth - 6

	hint := "Enter: next round · a: autoplay · c: copy · q: quit"
	if m.finished() {
		hint = "The games are over. r: new roster · c: copy · q: quit"
	}

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			separatorStyle.Render(strings.Repeat("─", max(storyWidth-4, 1))),
			promptStyle.Render(hint),
		),
	)

	statusPanel := statusPanelStyle.Width(statusWidth).Height(m.height - 2).Render(
		m.statusViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, statusPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.storyViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

func autoTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return autoTickMsg{}
	})
}
