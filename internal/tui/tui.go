// Package tui is the terminal front end. It feeds typed commands to a session
// and shows the narrative log next to a status panel.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/session"
	"github.com/wayfarer-rpg/wayfarer/internal/presenter"
)

// feedSize is how many recent events the side panel shows.
const feedSize = 8

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7875F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))
)

// Model is the bubbletea model. The session is driven only from Update, so it
// never sees concurrent calls.
type Model struct {
	ctx        context.Context
	game       *session.Game
	transcript *presenter.Transcript
	textInput  textinput.Model
	viewport   viewport.Model
	ready      bool
	gameLog    []string
	feed       []presenter.Line
	width      int
	height     int
}

// NewModel attaches a transcript to the game's bus and prepares the input line.
func NewModel(ctx context.Context, g *session.Game) Model {
	ti := textinput.New()
	ti.Placeholder = "new <name> <class>, load, or help"
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 60

	tr := presenter.NewTranscript(nil)
	tr.Attach(g.Bus())

	return Model{
		ctx:        ctx,
		game:       g,
		transcript: tr,
		textInput:  ti,
		gameLog:    []string{titleStyle.Render("WAYFARER"), "Type 'help' for commands."},
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.Reset()
			quit := m.submit(input)
			m.refresh()
			if quit {
				return m, tea.Quit
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(m.logWidth(), max(msg.Height-6, 3))
			m.ready = true
		} else {
			m.viewport.Width = m.logWidth()
			m.viewport.Height = max(msg.Height-6, 3)
		}
		m.refresh()
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// submit runs one command and records its outcome. It reports whether the
// program should exit.
func (m *Model) submit(input string) bool {
	res := m.game.ProcessCommand(m.ctx, input)
	m.gameLog = append(m.gameLog, userStyle.Render("> "+input))
	style := gameStyle
	if !res.Success {
		style = failStyle
	}
	if res.Message != "" {
		m.gameLog = append(m.gameLog, style.Render(res.Message))
	}
	m.feed = append(m.feed, m.transcript.Drain()...)
	if len(m.feed) > feedSize {
		m.feed = m.feed[len(m.feed)-feedSize:]
	}
	return res.Quit
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	width := m.logWidth()
	lines := make([]string, len(m.gameLog))
	for i, l := range m.gameLog {
		lines[i] = lipgloss.NewStyle().Width(width).Render(l)
	}
	m.viewport.SetContent(strings.Join(lines, "\n\n"))
	m.viewport.GotoBottom()
}

func (m Model) logWidth() int {
	return max(int(float64(m.width)*0.65), 20)
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Loading...\n"
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderState())
	help := helpStyle.Render(fmt.Sprintf("[%s] help, look, go <dir>, attack, save, quit. Esc exits.", m.transcript.Label(m.game.State().String())))
	return "\n" + lipgloss.JoinVertical(lipgloss.Left, body, "\n"+m.textInput.View(), help) + "\n"
}

func (m Model) renderState() string {
	var b strings.Builder
	if p := m.game.Players().Player(); p != nil {
		b.WriteString(titleStyle.Render("CHARACTER") + "\n")
		fmt.Fprintf(&b, "%s, level %d %s\n", p.Name, p.Level, p.Class)
		fmt.Fprintf(&b, "HP %d/%d  MP %d/%d\n", p.Health, p.MaxHealth, p.Mana, p.MaxMana)
		fmt.Fprintf(&b, "XP %d/%d  Gold %d\n\n", p.Experience, p.ExperienceToNextLevel, p.Gold)
	}
	if loc := m.game.World().Current(); loc != nil && m.game.HasGame() {
		b.WriteString(titleStyle.Render("LOCATION") + "\n" + loc.Name + "\n\n")
	}
	if e, ok := m.game.Combat().Enemy(); ok {
		b.WriteString(warnStyle.Render(fmt.Sprintf("Fighting %s %d/%d", e.Name, e.Health, e.MaxHealth)) + "\n\n")
	}
	b.WriteString(titleStyle.Render("EVENTS") + "\n")
	if len(m.feed) == 0 {
		b.WriteString("(quiet)")
	}
	for _, l := range m.feed {
		text := l.Text
		if l.Severity >= events.SeverityWarning {
			text = warnStyle.Render(text)
		}
		b.WriteString("- " + text + "\n")
	}
	width := max(m.width-m.logWidth()-4, 10)
	return stateStyle.Width(width).Height(m.viewport.Height).Render(b.String())
}

// Run starts the program and blocks until the player quits.
func Run(ctx context.Context, g *session.Game) error {
	p := tea.NewProgram(NewModel(ctx, g), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
