// Package component holds the building blocks of the chat UI: the input
// box, the message list and the status line.
package component

import (
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SubmitMsg is emitted when the user submits the input.
type SubmitMsg struct {
	Value string
}

// EditModel wraps the single-line input box.
type EditModel struct {
	textarea textarea.Model
	width    int
}

func NewEditModel() EditModel {
	ta := textarea.New()
	ta.Placeholder = "Ask a question, or paste a URL or file path..."
	ta.Focus()

	ta.Prompt = "> "
	ta.CharLimit = 2000
	ta.SetWidth(30)
	ta.SetHeight(1)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.ShowLineNumbers = false

	// Enter submits; newlines are not part of a chat message.
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return EditModel{textarea: ta, width: 30}
}

func (m EditModel) Init() tea.Cmd {
	return textarea.Blink
}

func (m EditModel) Update(msg tea.Msg) (EditModel, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEnter {
		value := m.textarea.Value()
		if value == "" {
			return m, nil
		}
		m.textarea.Reset()
		return m, func() tea.Msg {
			return SubmitMsg{Value: value}
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *EditModel) View() string {
	return m.textarea.View()
}

func (m *EditModel) SetWidth(width int) {
	m.width = width
	m.textarea.SetWidth(width)
}

func (m *EditModel) Height() int {
	return m.textarea.Height()
}

func (m *EditModel) Focus() tea.Cmd {
	return m.textarea.Focus()
}

func (m *EditModel) Blur() {
	m.textarea.Blur()
}
