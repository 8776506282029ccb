package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"relaychat/chat"
	"relaychat/config"
	"relaychat/model"
	"relaychat/orchestrator"
)

// sendTimeout bounds one send, fallback retry included.
const sendTimeout = 120 * time.Second

// AppView is the single-screen chat front end. It observes a chat.Session
// and its orchestrator; all behaviour lives there.
type AppView struct {
	cfg     *config.Config
	session *chat.Session
	orch    *orchestrator.Orchestrator
	version string

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	generating bool
	cancelSend context.CancelFunc
	sentModel  string

	errBanner string
	status    string

	showHelp   bool
	panelTitle string
	panelBody  string

	// Last listing shown by /list, addressed by /open n and /delete n.
	listed []model.Conversation

	rendered map[string]string

	events      <-chan orchestrator.Event
	unsubscribe func()
	titles      chan titleChangedMsg
}

func NewAppView(cfg *config.Config, session *chat.Session, version string) AppView {
	ti := textinput.New()
	ti.Placeholder = "Type a message, or /help for commands"
	ti.Prompt = "> "
	ti.CharLimit = 0
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = AssistantStyle

	orch := session.Orchestrator()
	events, unsubscribe := orch.Subscribe()

	titles := make(chan titleChangedMsg, 8)
	session.OnTitleChange(func(id, title string) {
		select {
		case titles <- titleChangedMsg{conversationID: id, title: title}:
		default:
		}
	})

	return AppView{
		cfg:         cfg,
		session:     session,
		orch:        orch,
		version:     version,
		viewport:    viewport.New(0, 0),
		input:       ti,
		spinner:     sp,
		rendered:    make(map[string]string),
		events:      events,
		unsubscribe: unsubscribe,
		titles:      titles,
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForEvent(a.events),
		waitForTitle(a.titles),
	)
}

func waitForEvent(events <-chan orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return orchestratorEventMsg(ev)
	}
}

func waitForTitle(titles <-chan titleChangedMsg) tea.Cmd {
	return func() tea.Msg {
		return <-titles
	}
}

func sendCmd(session *chat.Session, text string) (tea.Cmd, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	return func() tea.Msg {
		defer cancel()
		reply, err := session.Send(ctx, text)
		return replyMsg{reply: reply, err: err}
	}, cancel
}

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.layout()
		// Width changed; markdown has to be re-wrapped.
		a.rendered = make(map[string]string)
		cmds = append(cmds, a.renderPending())
		a.refresh(true)
		return a, tea.Batch(cmds...)

	case spinner.TickMsg:
		if !a.generating {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.refresh(true)
		return a, cmd

	case replyMsg:
		return a.handleReply(msg)

	case markdownRenderedMsg:
		a.rendered[msg.messageID] = msg.rendered
		a.refresh(false)
		return a, nil

	case titleChangedMsg:
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Conversation %s titled %q", msg.conversationID, msg.title)
		}
		return a, waitForTitle(a.titles)

	case orchestratorEventMsg:
		if msg.State == orchestrator.StateError && msg.Err != nil && !a.generating {
			a.setError(msg.Err)
		}
		return a, waitForEvent(a.events)

	case reloadMsg:
		if msg.err != nil {
			a.setError(msg.err)
		} else {
			a.status = msg.status
		}
		a.closePanel()
		a.refresh(true)
		return a, a.renderPending()

	case conversationsMsg:
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.listed = msg.conversations
		a.openPanel("Conversations", a.conversationList())
		return a, nil

	case searchResultsMsg:
		if msg.err != nil {
			a.setError(msg.err)
			return a, nil
		}
		a.openPanel(fmt.Sprintf("Search: %s", msg.query), a.searchResults(msg))
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if a.cancelSend != nil {
			a.cancelSend()
		}
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		return a, tea.Quit

	case "esc":
		switch {
		case a.showHelp:
			a.showHelp = false
		case a.panelTitle != "":
			a.closePanel()
		case a.generating:
			a.session.Abandon()
			if a.cancelSend != nil {
				a.cancelSend()
			}
		case a.errBanner != "":
			a.errBanner = ""
			a.orch.ClearError()
			a.layout()
		}
		return a, nil

	case "ctrl+y":
		messages := a.session.Messages()
		for i := len(messages) - 1; i >= 0; i-- {
			if !messages[i].IsFromUser {
				if err := clipboard.WriteAll(messages[i].Content); err != nil {
					a.setError(fmt.Errorf("copy failed: %w", err))
				} else {
					a.status = "Copied last reply"
				}
				break
			}
		}
		return a, nil

	case "pgup":
		a.viewport.HalfPageUp()
		return a, nil

	case "pgdown":
		a.viewport.HalfPageDown()
		return a, nil

	case "enter":
		if a.generating {
			return a, nil
		}
		text := strings.TrimSpace(a.input.Value())
		if text == "" {
			return a, nil
		}
		a.input.Reset()
		if strings.HasPrefix(text, "/") {
			return a.runCommand(text)
		}
		return a.startSend(text)
	}

	if a.generating {
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a AppView) startSend(text string) (tea.Model, tea.Cmd) {
	a.errBanner = ""
	a.status = ""
	a.generating = true
	a.sentModel = a.orch.SelectedModel().ID
	a.input.Blur()
	a.layout()

	cmd, cancel := sendCmd(a.session, text)
	a.cancelSend = cancel

	// The session appends the optimistic user message synchronously inside
	// Send; the first spinner frame picks it up.
	return a, tea.Batch(cmd, a.spinner.Tick)
}

func (a AppView) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	a.generating = false
	a.cancelSend = nil
	a.input.Focus()

	switch {
	case errors.Is(msg.err, chat.ErrAbandoned):
		a.status = "Request abandoned"
		a.input.SetValue(a.session.Draft())
	case msg.err != nil:
		a.setError(msg.err)
		a.input.SetValue(a.session.Draft())
		a.input.CursorEnd()
	default:
		if current := a.orch.SelectedModel(); current.ID != a.sentModel {
			a.status = "Switched to " + current.DisplayName
		}
	}

	a.layout()
	a.refresh(true)
	if msg.err != nil {
		return a, nil
	}
	return a, renderMarkdownCmd(msg.reply.ID, msg.reply.Content, a.width)
}

// renderPending schedules markdown rendering for assistant messages that
// have none cached.
func (a AppView) renderPending() tea.Cmd {
	if !a.ready {
		return nil
	}
	var cmds []tea.Cmd
	for _, m := range a.session.Messages() {
		if m.IsFromUser {
			continue
		}
		if _, ok := a.rendered[m.ID]; !ok {
			cmds = append(cmds, renderMarkdownCmd(m.ID, m.Content, a.width))
		}
	}
	return tea.Batch(cmds...)
}

func (a *AppView) setError(err error) {
	a.errBanner = model.UserMessage(err)
	if config.Debug && config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Error: %v", err)
	}
	a.layout()
}

func (a *AppView) openPanel(title, body string) {
	a.panelTitle = title
	a.panelBody = body
}

func (a *AppView) closePanel() {
	a.panelTitle = ""
	a.panelBody = ""
}

// layout sizes the viewport around the header, banner, input and footer.
func (a *AppView) layout() {
	if !a.ready {
		return
	}
	reserved := 4 // header, input, footer, spacing
	if a.errBanner != "" {
		reserved += 3
	}
	a.viewport.Width = a.width
	a.viewport.Height = max(a.height-reserved, 1)
	a.input.Width = max(a.width-4, 10)
}

func (a *AppView) refresh(gotoBottom bool) {
	if !a.ready {
		return
	}
	waiting := ""
	if a.generating {
		waiting = a.spinner.View() + " Waiting for " + a.orch.SelectedModel().DisplayName + "..."
	}
	a.viewport.SetContent(renderTranscript(a.session.Messages(), a.rendered, waiting))
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showHelp {
		return renderHelp(a.width, a.height)
	}

	var sections []string
	sections = append(sections, a.header())

	if a.panelTitle != "" {
		sections = append(sections, a.panel())
	} else {
		sections = append(sections, a.viewport.View())
	}

	if a.errBanner != "" {
		sections = append(sections, ErrorBannerStyle.Width(a.width).Render(truncate(a.errBanner, a.width-2)))
	}

	sections = append(sections, a.input.View())
	sections = append(sections, a.footer())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (a AppView) header() string {
	selected := a.orch.SelectedModel()
	conv := a.session.Current()

	left := TitleStyle.Render(truncate(conv.Title, a.width/2))
	right := DimStyle.Render(fmt.Sprintf("%s (%s) · %s", selected.DisplayName, selected.CostTier(), a.orch.State()))

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (a AppView) footer() string {
	if a.status != "" {
		return StatusStyle.Render(truncate(a.status, a.width))
	}
	if a.generating {
		return FormatFooter("Esc", "Abandon", "Ctrl+C", "Quit")
	}
	if a.panelTitle != "" {
		return FormatFooter("Esc", "Close", "/open n", "Open", "Ctrl+C", "Quit")
	}
	if a.errBanner != "" {
		return FormatFooter("Enter", "Send", "Esc", "Dismiss", "/help", "Commands")
	}
	return FormatFooter("Enter", "Send", "Ctrl+Y", "Copy reply", "PgUp/PgDn", "Scroll", "/help", "Commands")
}

func (a AppView) panel() string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1).
		Width(max(a.width-2, 10)).
		Height(max(a.viewport.Height-2, 1))

	content := HighlightStyle.Render(a.panelTitle) + "\n\n" + a.panelBody
	return box.Render(content)
}
