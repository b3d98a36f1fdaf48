// Package tui provides the terminal chat front end for Cocoro.
//
// One viewport for the transcript, one input line, a status strip with
// the perceived emotion/intent, the chosen practice module, and the
// ambient mode driven by the extractor. Unknown mode ids render as idle
// here; the id itself still flows through the session for continuity.
//
// While a turn is in flight the session state belongs to the engine
// goroutine; the widget renders only from its own fields and folds the
// finished turn back in when the result message arrives.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cocoro-ai/cocoro/internal/config"
	"github.com/cocoro-ai/cocoro/internal/engine"
	"github.com/cocoro-ai/cocoro/internal/modetag"
	"github.com/cocoro-ai/cocoro/internal/session"
)

type theme struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	meta      lipgloss.Style
	status    lipgloss.Style
	errStatus lipgloss.Style
	inputLine lipgloss.Style
	modeStrip lipgloss.Style
}

func newTheme() theme {
	mint := lipgloss.Color("#05ffa1")
	blue := lipgloss.Color("#7aa2f7")
	muted := lipgloss.Color("#6b7089")
	pink := lipgloss.Color("#ff6ac1")

	return theme{
		user:      lipgloss.NewStyle().Foreground(mint).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(blue),
		meta:      lipgloss.NewStyle().Foreground(muted),
		status:    lipgloss.NewStyle().Foreground(blue).Bold(true),
		errStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		inputLine: lipgloss.NewStyle().PaddingTop(1),
		modeStrip: lipgloss.NewStyle().Foreground(pink),
	}
}

var modeGlyphs = map[string]string{
	"idle":      "·",
	"breathing": "◯",
	"grounding": "⬢",
	"warm":      "☀",
	"focus":     "▣",
	"rest":      "☾",
	"ambient":   "≋",
}

// Model is the bubbletea model for the chat widget.
type Model struct {
	eng   *engine.Engine
	state *session.State
	cfg   *config.Config

	input      textinput.Model
	transcript viewport.Model
	spin       spinner.Model
	theme      theme

	lines      []string
	statusLine string
	mode       modetag.Mode
	waiting    bool
	width      int
	height     int
	exportPath string
}

// New creates the chat widget around an engine and session state.
func New(eng *engine.Engine, st *session.State, cfg *config.Config) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 2000
	input.Placeholder = "How are you feeling right now?"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	transcript := viewport.New(0, 0)
	transcript.MouseWheelEnabled = true

	return Model{
		eng:        eng,
		state:      st,
		cfg:        cfg,
		input:      input,
		transcript: transcript,
		spin:       sp,
		theme:      newTheme(),
		statusLine: "ready",
		mode:       st.Mode,
		exportPath: cfg.Session.ExportPath,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

type turnDoneMsg struct {
	result *engine.Result
}

type exportDoneMsg struct {
	path string
	err  error
}

func (m Model) respondCmd(text string) tea.Cmd {
	eng := m.eng
	st := m.state
	return func() tea.Msg {
		return turnDoneMsg{result: eng.Respond(context.Background(), st, text)}
	}
}

func (m Model) exportCmd() tea.Cmd {
	st := m.state
	path := m.exportPath
	return func() tea.Msg {
		return exportDoneMsg{path: path, err: st.ExportLogTo(path)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = msg.Width
		m.transcript.Height = msg.Height - 5
		m.input.Width = msg.Width - 4
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+e":
			// The engine goroutine owns the state mid-turn.
			if m.waiting {
				return m, nil
			}
			m.statusLine = "exporting session log..."
			return m, m.exportCmd()
		case "ctrl+r":
			if m.waiting {
				return m, nil
			}
			m.eng.InvalidateModels()
			m.statusLine = "model listing will refresh on the next turn"
			return m, nil
		case "enter":
			if m.waiting {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.lines = append(m.lines, m.theme.user.Render("you ")+text)
			m.statusLine = "listening with care..."
			m.refreshTranscript()
			return m, tea.Batch(m.respondCmd(text), m.spin.Tick)
		}

	case turnDoneMsg:
		m.waiting = false
		m.appendResult(msg.result)
		m.refreshTranscript()
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.statusLine = m.theme.errStatus.Render("export failed: " + msg.err.Error())
		} else {
			m.statusLine = "session log written to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var inputCmd, vpCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.transcript, vpCmd = m.transcript.Update(msg)
	return m, tea.Batch(inputCmd, vpCmd)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.transcript.View())
	b.WriteString("\n")
	b.WriteString(m.modeStrip())
	b.WriteString("\n")

	if m.waiting {
		b.WriteString(m.theme.status.Render(m.spin.View() + " " + m.statusLine))
	} else {
		b.WriteString(m.theme.status.Render(m.statusLine))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.inputLine.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.theme.meta.Render("enter send · ctrl+e export log · ctrl+r refresh models · esc quit"))
	return b.String()
}

// appendResult folds one finished turn into the transcript, status, and
// mode strip.
func (m *Model) appendResult(r *engine.Result) {
	m.mode = r.Mode
	m.lines = append(m.lines, m.theme.assistant.Render("cocoro ")+r.Display)

	meta := fmt.Sprintf("emotion: %s · intent: %s · module: %s",
		r.Perception.Emotion, r.Perception.Intent, r.Module.Name)
	if r.Perception.Risk >= m.cfg.Risk.SomaticThreshold {
		meta += " · intensity marker present"
	}
	m.lines = append(m.lines, m.theme.meta.Render(meta))

	if r.Fallback {
		m.statusLine = m.theme.errStatus.Render("all models unavailable — fallback reply")
	} else {
		m.statusLine = fmt.Sprintf("replied via %s", r.Candidate)
	}
}

// modeStrip renders the ambient mode indicator from the widget's own
// cached mode, never from the shared session state.
func (m Model) modeStrip() string {
	id := int(m.mode)
	if !m.cfg.KnownMode(id) {
		// Unknown id: display as idle, keep the raw id visible.
		return m.theme.modeStrip.Render(fmt.Sprintf("%s idle (mode %d)", modeGlyphs["idle"], id))
	}
	name := m.cfg.ModeName(id)
	glyph := modeGlyphs[name]
	if glyph == "" {
		glyph = modeGlyphs["idle"]
	}
	return m.theme.modeStrip.Render(fmt.Sprintf("%s %s", glyph, name))
}

// refreshTranscript re-wraps the transcript into the viewport.
func (m *Model) refreshTranscript() {
	content := strings.Join(m.lines, "\n\n")
	if m.width > 0 {
		content = lipgloss.NewStyle().Width(m.width).Render(content)
	}
	m.transcript.SetContent(content)
	m.transcript.GotoBottom()
}
