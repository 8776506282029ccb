package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"relaychat/model"
	"relaychat/storage"
)

// storeTimeout bounds conversation commands.
const storeTimeout = 30 * time.Second

// parseCommand splits "/name args..." into its lower-cased name and the
// trimmed remainder.
func parseCommand(input string) (name, arg string) {
	input = strings.TrimSpace(strings.TrimPrefix(input, "/"))
	name, arg, _ = strings.Cut(input, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

func (a AppView) runCommand(input string) (tea.Model, tea.Cmd) {
	name, arg := parseCommand(input)
	a.status = ""

	switch name {
	case "help", "?":
		a.showHelp = true
		return a, nil

	case "quit", "exit":
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		return a, tea.Quit

	case "models":
		a.openPanel("Models", a.modelList())
		return a, nil

	case "model":
		return a.switchModel(arg)

	case "new":
		session := a.session
		return a, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			_, err := session.NewConversation(ctx)
			return reloadMsg{status: "Started a new conversation", err: err}
		}

	case "list":
		session := a.session
		return a, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			conversations, err := session.Conversations(ctx)
			return conversationsMsg{conversations: conversations, err: err}
		}

	case "open":
		conv, err := a.listedConversation(arg)
		if err != nil {
			a.status = err.Error()
			return a, nil
		}
		session := a.session
		return a, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			err := session.Open(ctx, conv.ID)
			return reloadMsg{status: "Opened " + conv.Title, err: err}
		}

	case "rename":
		if arg == "" {
			a.status = "Usage: /rename <title>"
			return a, nil
		}
		session := a.session
		return a, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			err := session.Rename(ctx, arg)
			return reloadMsg{status: "Renamed to " + arg, err: err}
		}

	case "delete":
		conv := a.session.Current()
		if arg != "" {
			listed, err := a.listedConversation(arg)
			if err != nil {
				a.status = err.Error()
				return a, nil
			}
			conv = listed
		}
		session := a.session
		return a, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			err := session.Delete(ctx, conv.ID)
			return reloadMsg{status: "Deleted " + conv.Title, err: err}
		}

	case "key":
		return a.setKey(arg)

	case "search":
		if arg == "" {
			a.status = "Usage: /search <text>"
			return a, nil
		}
		store := a.session.Store()
		return a, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
			defer cancel()
			matches, err := storage.SearchMessages(ctx, store, arg)
			return searchResultsMsg{query: arg, matches: matches, err: err}
		}

	case "export":
		path, err := storage.ExportConversation(a.cfg.DataDir(), a.session.Current(), a.session.Messages())
		if err != nil {
			a.setError(err)
			return a, nil
		}
		a.status = "Exported to " + path
		return a, nil
	}

	a.status = fmt.Sprintf("Unknown command /%s (try /help)", name)
	return a, nil
}

func (a AppView) switchModel(query string) (tea.Model, tea.Cmd) {
	if query == "" {
		a.status = "Usage: /model <name>"
		return a, nil
	}
	matches := a.orch.Catalog().Find(query)
	if len(matches) == 0 {
		a.status = "No model matches " + query
		return a, nil
	}
	if err := a.orch.SwitchModel(matches[0].ID); err != nil {
		a.setError(err)
		return a, nil
	}
	a.errBanner = ""
	a.layout()
	a.status = "Using " + matches[0].DisplayName
	return a, nil
}

// setKey stores a provider credential. It is visible to the provider's next
// availability check.
func (a AppView) setKey(arg string) (tea.Model, tea.Cmd) {
	providerID, key, _ := strings.Cut(arg, " ")
	key = strings.TrimSpace(key)
	if providerID == "" {
		a.status = "Usage: /key <provider> <api key> (empty key removes it)"
		return a, nil
	}
	if err := a.cfg.UpdateProviderField(providerID, "apikey", key); err != nil {
		a.setError(err)
		return a, nil
	}
	if key == "" {
		a.status = "Removed key for " + providerID
	} else {
		a.status = "Saved key for " + providerID
	}
	return a, nil
}

// listedConversation resolves a 1-based index into the last /list output.
func (a AppView) listedConversation(arg string) (model.Conversation, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return model.Conversation{}, fmt.Errorf("usage: /open <n> after /list")
	}
	if n > len(a.listed) {
		return model.Conversation{}, fmt.Errorf("no conversation %d; run /list", n)
	}
	return a.listed[n-1], nil
}

func (a AppView) modelList() string {
	available := make(map[string]bool)
	for _, m := range a.orch.AvailableModels() {
		available[m.ID] = true
	}
	selected := a.orch.SelectedModel().ID

	var b strings.Builder
	for _, m := range a.orch.Catalog().All() {
		marker := "  "
		if m.ID == selected {
			marker = SelectedStyle.Render("> ")
		}
		state := DangerStyle.Render("not configured")
		if available[m.ID] {
			state = UserStyle.Render("ready")
		}
		line := fmt.Sprintf("%s%-28s %-12s %-5s %s", marker, truncate(m.DisplayName, 28), m.ProviderID, m.CostTier(), state)
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + DimStyle.Render("/model <name> to switch, /key <provider> <key> to configure"))
	return b.String()
}

func (a AppView) conversationList() string {
	if len(a.listed) == 0 {
		return DimStyle.Render("No conversations")
	}
	current := a.session.Current().ID
	width := max(a.width-20, 10)

	var b strings.Builder
	for i, c := range a.listed {
		title := truncate(c.Title, width)
		if c.ID == current {
			title = SelectedStyle.Render(title)
		}
		b.WriteString(fmt.Sprintf("%3d. %s  %s\n", i+1, title, DimStyle.Render(c.UpdatedAt.Local().Format("Jan 2 15:04"))))
	}
	return b.String()
}

func (a AppView) searchResults(msg searchResultsMsg) string {
	if len(msg.matches) == 0 {
		return DimStyle.Render("No matches")
	}
	width := max(a.width-8, 10)

	var b strings.Builder
	for _, m := range msg.matches {
		who := AssistantStyle.Render("Assistant")
		if m.IsFromUser {
			who = UserStyle.Render("You")
		}
		b.WriteString(fmt.Sprintf("%s · %s\n  %s\n", HighlightStyle.Render(truncate(m.ConversationTitle, width/2)), who, truncate(m.Preview, width)))
	}
	return b.String()
}

func renderHelp(width, height int) string {
	commands := []struct{ cmd, desc string }{
		{"/models", "List models and their availability"},
		{"/model <name>", "Switch model (fuzzy match)"},
		{"/key <provider> <key>", "Set or remove an API key"},
		{"/new", "New conversation"},
		{"/list", "List conversations"},
		{"/open <n>", "Open conversation n from /list"},
		{"/rename <title>", "Rename this conversation"},
		{"/delete [n]", "Delete this (or listed) conversation"},
		{"/search <text>", "Search all messages"},
		{"/export", "Export this conversation as JSON"},
		{"/quit", "Quit"},
	}

	var b strings.Builder
	b.WriteString(UserStyle.Render("relaychat - Commands") + "\n\n")
	for _, c := range commands {
		b.WriteString(fmt.Sprintf("• %-24s %s\n", c.cmd, c.desc))
	}
	b.WriteString("\n" + AssistantStyle.Render("## Keys") + "\n")
	b.WriteString("• Enter                    Send message\n")
	b.WriteString("• Esc                      Dismiss error / abandon request\n")
	b.WriteString("• Ctrl+Y                   Copy last reply\n")
	b.WriteString("• PgUp/PgDn                Scroll\n")
	b.WriteString("\n" + DimStyle.Render("Press Esc to close this help"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box.Render(b.String()))
}
