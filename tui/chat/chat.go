// Package chat is the terminal front end: one bubbletea model driving the
// pipeline and rendering its progress events.
package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"intellitube/llm/pipeline"
	"intellitube/llm/session"
	"intellitube/pubsub"
	"intellitube/tui/component"
)

// turnDoneMsg carries a finished pipeline run back into the UI loop.
type turnDoneMsg struct {
	outcome pipeline.Outcome
	err     error
}

// Model wires input, transcript and status to one pipeline per submit.
type Model struct {
	list   component.ListModel
	edit   component.EditModel
	status component.StatusModel

	pipeline *pipeline.Pipeline
	manager  *session.Manager
	sub      <-chan pubsub.Event[string]
	ctx      context.Context

	width  int
	height int
	busy   bool
}

func InitialModel(p *pipeline.Pipeline, manager *session.Manager, events pubsub.Subscriber[string]) Model {
	ctx := context.Background()
	return Model{
		list:     component.NewListModel(),
		edit:     component.NewEditModel(),
		status:   component.NewStatusModel(),
		pipeline: p,
		manager:  manager,
		sub:      events.Subscribe(ctx),
		ctx:      ctx,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.list.Init(),
		m.edit.Init(),
		m.status.Init(),
		m.waitForEvent(),
	)
}

func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-m.sub
	}
}

// runTurn executes one pipeline run off the UI goroutine.
func (m Model) runTurn(message string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.pipeline.RunTurn(m.ctx, m.manager.State, message)
		return turnDoneMsg{outcome: outcome, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		statusHeight := lipgloss.Height(m.status.View())
		editHeight := m.edit.Height()
		m.list.SetSize(m.width, m.height-statusHeight-editHeight)
		m.edit.SetWidth(m.width)
		m.status.SetWidth(m.width)

	case component.SubmitMsg:
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.list.Add(component.Entry{Role: "you", Text: msg.Value})
		var cmd tea.Cmd
		m.status, cmd = m.status.Start("route")
		cmds = append(cmds, cmd, m.runTurn(msg.Value))

	case pubsub.Event[string]:
		cmds = append(cmds, m.waitForEvent())
		if msg.Type == pubsub.StageEvent && m.busy {
			var cmd tea.Cmd
			m.status, cmd = m.status.Start(msg.Payload)
			cmds = append(cmds, cmd)
		}

	case turnDoneMsg:
		m.busy = false
		m.status.Stop()
		m.list.Add(outcomeEntry(msg))
		_ = m.manager.Save()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			_ = m.manager.Save()
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd)

	m.edit, cmd = m.edit.Update(msg)
	cmds = append(cmds, cmd)

	m.status, cmd = m.status.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// outcomeEntry translates a turn result into a transcript entry.
func outcomeEntry(msg turnDoneMsg) component.Entry {
	switch {
	case msg.err != nil:
		return component.Entry{Role: "note", Text: "The turn failed: " + msg.err.Error()}
	case msg.outcome.Kind == pipeline.OutcomeAnswered:
		return component.Entry{Role: "assistant", Text: msg.outcome.Answer}
	case msg.outcome.Kind == pipeline.OutcomeLoadFailed:
		return component.Entry{Role: "note", Text: "Could not load the content: " + msg.outcome.Reason}
	default:
		return component.Entry{Role: "note", Text: "I could not make sense of that message. Try rephrasing it."}
	}
}

func (m Model) View() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.list.View(),
		m.status.View(),
		m.edit.View(),
	)
}
