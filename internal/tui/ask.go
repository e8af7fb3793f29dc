// Package tui implements the interactive question loop behind `tally ask`.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/query"
)

// Answerer turns a question into an answer.
type Answerer interface {
	Process(ctx context.Context, question string) (*query.FormattedAnswer, error)
}

// KeyMap defines the ask loop's key bindings.
type KeyMap struct {
	Submit key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// answerMsg carries the outcome of one question.
type answerMsg struct {
	answer   *query.FormattedAnswer
	err      error
	question string
}

// exchange is one question and its rendered reply.
type exchange struct {
	question string
	reply    string
}

// AskModel is the bubbletea model for the ask loop.
type AskModel struct {
	ctx      context.Context
	answerer Answerer
	keymap   KeyMap
	history  []exchange
	input    textinput.Model
	spinner  spinner.Model
	pending  string
	timeout  time.Duration
	width    int
	loading  bool
	quitting bool
}

// NewAskModel creates the ask loop. timeout bounds each question; zero means none.
func NewAskModel(ctx context.Context, answerer Answerer, timeout time.Duration) AskModel {
	input := textinput.New()
	input.Placeholder = "How much did I spend on Food last month?"
	input.CharLimit = 500
	input.Prompt = cli.FormatPrompt(cli.QuestionIcon)
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(cli.PrimaryColor)

	return AskModel{
		ctx:      ctx,
		answerer: answerer,
		keymap:   DefaultKeyMap(),
		input:    input,
		spinner:  s,
		timeout:  timeout,
	}
}

// Init returns initial commands.
func (m AskModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m AskModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Submit):
			return m.submit()
		}

	case answerMsg:
		m.loading = false
		m.pending = ""
		reply := ""
		if msg.err != nil {
			reply = cli.ErrorText(msg.err)
		} else {
			reply = cli.AnswerText(msg.answer)
		}
		m.history = append(m.history, exchange{question: msg.question, reply: reply})
		m.input.Focus()
		return m, nil

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-6, 20)
	}

	if m.loading {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m AskModel) submit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if m.loading || question == "" {
		return m, nil
	}
	switch strings.ToLower(question) {
	case "exit", "quit":
		m.quitting = true
		return m, tea.Quit
	}

	m.loading = true
	m.pending = question
	m.input.Reset()
	m.input.Blur()
	return m, tea.Batch(m.spinner.Tick, m.ask(question))
}

// ask runs the question off the UI goroutine.
func (m AskModel) ask(question string) tea.Cmd {
	ctx, answerer, timeout := m.ctx, m.answerer, m.timeout
	return func() tea.Msg {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		answer, err := answerer.Process(ctx, question)
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// View renders the conversation so far and the input line.
func (m AskModel) View() string {
	if m.quitting {
		return cli.SubtleStyle.Render("Bye.") + "\n"
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Ask about your spending and income"))
	b.WriteString("\n")

	for _, ex := range m.history {
		b.WriteString(cli.BoldStyle.Render("> " + ex.question))
		b.WriteString("\n")
		b.WriteString(ex.reply)
		b.WriteString("\n\n")
	}

	if m.loading {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(cli.SubtleStyle.Render("Thinking about \"" + m.pending + "\""))
		b.WriteString("\n")
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString(cli.SubtleStyle.Render("enter: ask • esc: quit"))
	b.WriteString("\n")
	return b.String()
}

// Run starts the ask loop and blocks until the user quits.
func Run(ctx context.Context, answerer Answerer, timeout time.Duration) error {
	p := tea.NewProgram(NewAskModel(ctx, answerer, timeout), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
