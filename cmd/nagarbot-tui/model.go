package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"nagarbot/internal/chat"
	apperrors "nagarbot/internal/errors"
	"nagarbot/internal/media"
	"nagarbot/internal/notify"
	"nagarbot/internal/storage"
)

// Driver runs conversation turns. *dialogue.Runner satisfies it.
type Driver interface {
	Send(ctx context.Context, text, attachment string) ([]chat.Message, error)
	SelectCategory(ctx context.Context, category string) ([]chat.Message, error)
	CheckResolution(ctx context.Context, complaintID string) ([]chat.Message, error)
}

// turnDoneMsg reports that a runner call returned.
type turnDoneMsg struct {
	err error
}

// logUpdatedMsg is sent whenever the transcript grows, so the user's own
// message shows up before the typing delay ends.
type logUpdatedMsg struct{}

// Model is the bubbletea model for the terminal chat.
type Model struct {
	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	renderer  *glamour.TermRenderer

	driver   Driver
	log      *chat.Log
	repo     *storage.Repository
	composer *notify.Composer

	ready      bool
	isLoading  bool
	attachment string
	notice     string
}

// NewModel creates the chat model over a running conversation.
func NewModel(driver Driver, l *chat.Log, repo *storage.Repository, composer *notify.Composer) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, or /help (Enter to send, Esc to exit)"
	ti.Focus()
	ti.CharLimit = 1000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return Model{
		textinput: ti,
		spinner:   sp,
		renderer:  renderer,
		driver:    driver,
		log:       l,
		repo:      repo,
		composer:  composer,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			if !m.isLoading {
				return m.handleSubmit()
			}
		}
		if !m.isLoading {
			m.textinput, tiCmd = m.textinput.Update(msg)
		}

	case tea.WindowSizeMsg:
		const chrome = 6
		if !m.ready {
			m.viewport = viewport.New(msg.Width-2, msg.Height-chrome)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 2
			m.viewport.Height = msg.Height - chrome
		}
		m.textinput.Width = msg.Width - 6
		m.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(msg.Width-6),
		)
		m.refresh()

	case spinner.TickMsg:
		if m.isLoading {
			var spCmd tea.Cmd
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}

	case logUpdatedMsg:
		m.refresh()

	case turnDoneMsg:
		m.isLoading = false
		if msg.err != nil {
			m.notice = "⚠️ " + describeError(msg.err)
		}
		m.refresh()
	}

	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textinput.Value())
	m.textinput.Reset()
	m.notice = ""

	if strings.HasPrefix(input, "/") {
		return m.handleCommand(parseCommand(input))
	}
	if input == "" && m.attachment == "" {
		return m, nil
	}

	attachment := m.attachment
	m.attachment = ""
	return m.run(func(ctx context.Context) error {
		_, err := m.driver.Send(ctx, input, attachment)
		return err
	})
}

func (m Model) handleCommand(cmd command) (tea.Model, tea.Cmd) {
	switch cmd.kind {
	case cmdCategory:
		return m.run(func(ctx context.Context) error {
			_, err := m.driver.SelectCategory(ctx, cmd.arg)
			return err
		})
	case cmdRecheck:
		if cmd.arg == "" {
			m.notice = "Usage: /recheck NP000123"
			break
		}
		return m.run(func(ctx context.Context) error {
			_, err := m.driver.CheckResolution(ctx, cmd.arg)
			return err
		})
	case cmdComplaints:
		m.notice = complaintsMarkdown(m.repo.All())
	case cmdHandoff:
		last, ok := m.repo.Last()
		ctx := context.Background()
		if ok {
			m.notice = "💬 **WhatsApp handoff**\n\n" + m.composer.DeepLink(ctx, &last)
		} else {
			m.notice = "💬 **WhatsApp handoff**\n\n" + m.composer.DeepLink(ctx, nil)
		}
	case cmdAttach:
		ref, err := attachFile(cmd.arg)
		if err != nil {
			m.notice = "⚠️ " + describeError(err)
			break
		}
		m.attachment = ref
		m.notice = "📎 Image attached to your next message."
	case cmdHelp:
		m.notice = helpText
	case cmdQuit:
		return m, tea.Quit
	default:
		m.notice = fmt.Sprintf("Unknown command /%s. Type /help for the list.", cmd.arg)
	}
	m.refresh()
	return m, nil
}

// run calls the driver off the UI goroutine; the runner's typing delay
// would otherwise freeze the screen.
func (m Model) run(call func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	m.isLoading = true
	m.refresh()
	return m, tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			return turnDoneMsg{err: call(context.Background())}
		},
	)
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	md := transcriptMarkdown(m.log.All())
	if m.notice != "" {
		md += "\n\n---\n\n" + m.notice
	}
	out := md
	if m.renderer != nil {
		if rendered, err := m.renderer.Render(md); err == nil {
			out = rendered
		}
	}
	m.viewport.SetContent(out)
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Starting..."
	}
	status := "  🏛️ Nagar Palika Assistant"
	if m.isLoading {
		status = fmt.Sprintf("  %s Nagar Palika is typing...", m.spinner.View())
	} else if m.attachment != "" {
		status += "  📎 1 image ready"
	}
	return fmt.Sprintf("%s\n%s\n\n%s", status, m.viewport.View(), m.textinput.View())
}

func attachFile(path string) (string, error) {
	if path == "" {
		return "", apperrors.NewValidationError("image", "usage: /attach PATH")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", apperrors.NewValidationError("image", "cannot open "+path)
	}
	defer f.Close()
	return media.IngestReader(f, media.ChatImageLimit)
}

func describeError(err error) string {
	switch {
	case apperrors.IsSessionActive(err):
		return "Please finish the current step first."
	case apperrors.IsNotEligible(err):
		return "That complaint can't be re-checked right now."
	case apperrors.IsNotFound(err):
		return "Complaint not found."
	case apperrors.IsBusy(err):
		return "Still typing, please wait a moment."
	}
	return err.Error()
}
