package component

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// stageLabels maps pipeline stage names to user-facing status text.
var stageLabels = map[string]string{
	"route":         "Reading your message...",
	"load":          "Loading the content...",
	"summarize":     "Summarizing...",
	"index":         "Indexing...",
	"retrieve":      "Searching the indexed content...",
	"deliver_error": "Something went wrong...",
	"answer":        "Writing the answer...",
}

// StatusModel shows a spinner plus the current pipeline stage.
type StatusModel struct {
	spinner spinner.Model
	running bool
	text    string
	width   int
}

func NewStatusModel() StatusModel {
	s := spinner.New()
	s.Spinner = spinner.Jump
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return StatusModel{
		spinner: s,
		text:    "Ready",
	}
}

func (m StatusModel) Init() tea.Cmd {
	return nil
}

func (m StatusModel) Update(msg tea.Msg) (StatusModel, tea.Cmd) {
	if m.running {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Start spins with the given stage label.
func (m StatusModel) Start(stage string) (StatusModel, tea.Cmd) {
	label, ok := stageLabels[stage]
	if !ok {
		label = "Processing..."
	}
	m.text = label
	if m.running {
		return m, nil
	}
	m.running = true
	return m, m.spinner.Tick
}

// Stop returns the status line to idle.
func (m *StatusModel) Stop() {
	m.running = false
	m.text = "Ready"
}

func (m StatusModel) View() string {
	style := lipgloss.NewStyle().Padding(1, 0)
	content := m.text
	if m.running {
		content = fmt.Sprintf("%s %s", m.spinner.View(), m.text)
	}
	return style.Render(content)
}

func (m *StatusModel) SetWidth(width int) {
	m.width = width
}

func (m StatusModel) IsRunning() bool {
	return m.running
}
