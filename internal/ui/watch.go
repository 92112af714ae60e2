// Package ui implements the terminal watch mode: a Bubble Tea program
// that polls a running kopiahook server and renders the history slots.
package ui

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/spacefrags/kopiahook/internal/sensor"
)

const pollInterval = 2 * time.Second

var (
	statusStyle = lipgloss.NewStyle().Foreground(
		lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"},
	)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	labelStyle    = lipgloss.NewStyle().Bold(true)
	emptyStyle    = statusStyle
)

// slotsMsg carries a fresh poll result.
type slotsMsg []sensor.View

// pollErrMsg is a failed poll; the watcher keeps polling.
type pollErrMsg struct{ error }

type tickMsg struct{}

// Model is the Bubble Tea model driving the watch view.
type Model struct {
	client *Client

	spinner  spinner.Model
	help     help.Model
	slots    []sensor.View
	selected int

	err error
}

func newModel(client *Client) Model {
	return Model{
		client:  client,
		spinner: spinner.New(),
		help:    help.New(),
	}
}

func (m Model) fetchSlots() tea.Cmd {
	return func() tea.Msg {
		views, err := m.client.Slots()
		if err != nil {
			return pollErrMsg{err}
		}
		return slotsMsg(views)
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchSlots())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, Keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, Keys.Up):
			if m.selected > 0 {
				m.selected--
			}
		case key.Matches(msg, Keys.Down):
			if m.selected < len(m.slots)-1 {
				m.selected++
			}
		case key.Matches(msg, Keys.Refresh):
			cmds = append(cmds, m.fetchSlots())
		}
		var c tea.Cmd
		m.help, c = m.help.Update(msg)
		cmds = append(cmds, c)

	case slotsMsg:
		m.slots = msg
		m.err = nil
		if m.selected >= len(m.slots) && len(m.slots) > 0 {
			m.selected = len(m.slots) - 1
		}
		cmds = append(cmds, tick())

	case pollErrMsg:
		m.err = msg.error
		cmds = append(cmds, tick())

	case tickMsg:
		cmds = append(cmds, m.fetchSlots())

	case spinner.TickMsg:
		var c tea.Cmd
		m.spinner, c = m.spinner.Update(msg)
		cmds = append(cmds, c)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" Watching snapshot history\n\n")

	for i, view := range m.slots {
		line := m.renderSlot(i, view)
		if i == m.selected {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.selected < len(m.slots) {
		if attrs := renderAttributes(m.slots[m.selected]); attrs != "" {
			b.WriteString("\n")
			b.WriteString(attrs)
			b.WriteString("\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("poll error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(Keys))

	return b.String()
}

func (m Model) renderSlot(i int, view sensor.View) string {
	if view.State == sensor.StateEmpty {
		return fmt.Sprintf(" %2d  %s", i+1, emptyStyle.Render("—"))
	}
	label := view.Label
	if label == "" {
		label = "unknown"
	}
	line := fmt.Sprintf(" %2d  %s", i+1, labelStyle.Render(label))
	if status := view.Attributes["status"]; status != "" {
		line += "  " + status
	}
	if ts := view.Attributes["snapshot_timestamp"]; ts != "" {
		line += "  " + statusStyle.Render(ts)
	}
	return line
}

// renderAttributes pretty-prints the selected slot's attributes with
// highlighted keys, or returns "" for an empty slot.
func renderAttributes(view sensor.View) string {
	if len(view.Attributes) == 0 {
		return ""
	}
	pretty, err := json.MarshalIndent(view.Attributes, "", "  ")
	if err != nil {
		return ""
	}
	return highlightJSONKeys(string(pretty))
}

// Run connects to endpoint, spins up the Bubble Tea program, and blocks
// until the watcher exits.
func Run(endpoint string) error {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8099"
	}
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: %v", endpoint, err)
	}

	m := newModel(NewClient(endpoint))
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
