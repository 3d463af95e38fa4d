package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-chat/internal/chat"
	"agent-chat/internal/clipboard"
	"agent-chat/internal/config"
	"agent-chat/internal/export"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const failedStatus = "Send failed. Try again."

type Model struct {
	cfg      config.AppConfig
	ctrl     *chat.Controller
	exporter *export.Exporter
	labels   export.Labels

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap

	width       int
	height      int
	renderNonce int

	status string
}

type replyMsg struct {
	reply chat.Reply
}
type renderMsg struct {
	rendered string
	nonce    int
}
type exportMsg struct {
	path string
	err  error
}
type copyMsg struct {
	err error
}

func NewModel(cfg config.AppConfig, ctrl *chat.Controller, exp *export.Exporter) Model {
	vp := viewport.New(60, 20)
	vp.SetContent(emptyHint)

	ti := textinput.New()
	ti.Placeholder = cfg.UI.Placeholder
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points

	h := help.New()
	h.ShowAll = false

	return Model{
		cfg:      cfg,
		ctrl:     ctrl,
		exporter: exp,
		labels:   export.Labels{User: cfg.UI.UserLabel, Assistant: cfg.UI.AgentLabel},
		viewport: vp,
		input:    ti,
		spinner:  sp,
		help:     h,
		keys:     defaultKeys(),
	}
}

const emptyHint = "No messages yet. Start the conversation!"

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) sendCmd(req chat.Request) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return replyMsg{reply: ctrl.Exchange(context.Background(), req)}
	}
}

func (m Model) exportCmd() tea.Cmd {
	if m.exporter == nil {
		return func() tea.Msg { return exportMsg{err: errors.New("export disabled")} }
	}
	exp := m.exporter
	s := m.ctrl.Session()
	id, history := s.ID(), s.History()
	endpoint := m.cfg.Endpoint
	return func() tea.Msg {
		path, err := exp.Export(id, endpoint, history)
		return exportMsg{path: path, err: err}
	}
}

func (m Model) copyCmd() tea.Cmd {
	md := export.BuildTranscriptMarkdown(m.ctrl.Session().History(), m.labels)
	if md == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{err: clipboard.Copy(ctx, md)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.renderTranscript())

	case replyMsg:
		if !m.ctrl.Complete(msg.reply) {
			break
		}
		if msg.reply.Err != nil {
			m.status = failedStatus
		} else {
			m.status = ""
		}
		cmds = append(cmds, m.renderTranscript())

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.viewport.SetContent(msg.rendered)
		m.viewport.GotoBottom()

	case exportMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copyMsg:
		if msg.err != nil {
			if errors.Is(msg.err, clipboard.ErrUnavailable) {
				m.status = "Could not copy: clipboard tool not found"
			} else {
				m.status = "Could not copy: " + msg.err.Error()
			}
		} else {
			m.status = "Copied transcript to clipboard"
		}

	case spinner.TickMsg:
		if m.ctrl.Session().Pending() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			cmd := m.submit()
			return m, cmd
		case key.Matches(msg, m.keys.Export):
			return m, m.exportCmd()
		case key.Matches(msg, m.keys.Copy):
			return m, m.copyCmd()
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfViewUp()
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.ctrl.UpdateDraft(m.input.Value())
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// submit is the submit trigger. It is inert while a request is in flight.
func (m *Model) submit() tea.Cmd {
	if m.ctrl.Session().Pending() {
		return nil
	}
	m.ctrl.UpdateDraft(m.input.Value())
	req, ok := m.ctrl.Begin()
	if !ok {
		return nil
	}
	m.input.Reset()
	m.status = ""
	return tea.Batch(m.sendCmd(req), m.spinner.Tick, m.renderTranscript())
}

func (m *Model) renderTranscript() tea.Cmd {
	m.renderNonce++
	nonce := m.renderNonce
	md := export.BuildTranscriptMarkdown(m.ctrl.Session().History(), m.labels)
	if md == "" {
		m.viewport.SetContent(emptyHint)
		return nil
	}
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	style := m.cfg.UI.GlamourStyle
	return func() tea.Msg {
		return renderMsg{rendered: renderMarkdown(md, style, wrap), nonce: nonce}
	}
}

func renderMarkdown(md, style string, wrap int) string {
	if style == "" {
		style = config.DefaultGlamourStyle
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	inner := m.width - 4
	if inner < 20 {
		inner = 20
	}
	// header(2) + panel border(2) + loading(1) + input(1) + status(1) + help(1)
	bodyHeight := m.height - 8
	if bodyHeight < 5 {
		bodyHeight = 5
	}
	m.viewport.Width = inner
	m.viewport.Height = bodyHeight
	m.input.Width = inner - len(m.input.Prompt) - 1
	m.help.Width = m.width
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	header := titleStyle.Render(m.cfg.UI.Title)
	if m.cfg.UI.Subtitle != "" {
		header += "\n" + dimStyle.Render(m.cfg.UI.Subtitle)
	} else {
		header += "\n"
	}

	body := panelStyle.Width(m.width - 2).Render(m.viewport.View())

	loading := ""
	input := m.input.View()
	if m.ctrl.Session().Pending() {
		loading = m.spinner.View() + " " + m.cfg.UI.LoadingText
		input = dimStyle.Render(input)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		loading,
		input,
		m.statusLine(),
		m.help.View(m.keys),
	)
}

func (m Model) statusLine() string {
	s := m.ctrl.Session()
	status := fmt.Sprintf("session=%s  turns=%d", shortID(s.ID()), s.Len())
	if s.Pending() {
		status += "  [sending]"
	}
	if t := strings.TrimSpace(m.status); t != "" {
		status += "  " + t
	}
	width := m.width - 2
	if width < 10 {
		width = 10
	}
	return statusStyle.Render(ansi.Truncate(status, width, "..."))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

type keyMap struct {
	Submit   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Export   key.Binding
	Copy     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export markdown"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy transcript"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.PageUp, k.PageDown, k.Export, k.Copy, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.PageUp, k.PageDown},
		{k.Export, k.Copy, k.Quit},
	}
}
