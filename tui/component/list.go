package component

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Entry is one rendered line of the conversation.
type Entry struct {
	Role string // "you", "assistant", "note"
	Text string
}

var (
	userLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true)
	noteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

// ListModel holds the conversation transcript in a scrollable viewport.
// Assistant replies are markdown, rendered through glamour.
type ListModel struct {
	viewport viewport.Model
	entries  []Entry
	markdown *glamour.TermRenderer
	width    int
	height   int
	ready    bool
}

func NewListModel() ListModel {
	vp := viewport.New(30, 30)
	vp.SetContent("Share a document, web page or YouTube link, then ask about it.")

	markdown, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(0),
	)

	return ListModel{
		viewport: vp,
		markdown: markdown,
		width:    30,
		height:   5,
		ready:    true,
	}
}

func (m ListModel) Init() tea.Cmd {
	return nil
}

func (m ListModel) Update(msg tea.Msg) (ListModel, tea.Cmd) {
	if mouse, ok := msg.(tea.MouseMsg); ok {
		switch mouse.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.viewport.ScrollDown(3)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// Add appends one entry and scrolls to it.
func (m *ListModel) Add(entry Entry) {
	m.entries = append(m.entries, entry)
	m.refresh()
	m.viewport.GotoBottom()
}

func (m ListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.viewport.View()
}

func (m *ListModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	if height < 1 {
		height = 1
	}

	m.viewport.Width = width
	m.viewport.Height = height
	m.ready = true

	if len(m.entries) > 0 {
		m.refresh()
	}
	m.viewport.GotoBottom()
}

func (m *ListModel) refresh() {
	var b strings.Builder
	for _, entry := range m.entries {
		switch entry.Role {
		case "assistant":
			rendered := entry.Text
			if m.markdown != nil {
				if out, err := m.markdown.Render(entry.Text); err == nil {
					rendered = strings.TrimRight(out, "\n")
				}
			}
			b.WriteString(rendered)
		case "note":
			b.WriteString(noteStyle.Render(entry.Text))
		default:
			b.WriteString(userLabelStyle.Render("you: ") + entry.Text)
		}
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
}
