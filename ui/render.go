package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mattn/go-runewidth"

	"relaychat/config"
	"relaychat/model"
)

var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
)

const codeBar = "┃"

// renderTranscript builds the viewport content for a conversation. Assistant
// messages use their rendered markdown when available.
func renderTranscript(messages []model.Message, rendered map[string]string, waiting string) string {
	if len(messages) == 0 && waiting == "" {
		return DimStyle.Render("No messages yet. Start chatting!")
	}

	var content strings.Builder
	for _, msg := range messages {
		timestamp := DimStyle.Render(msg.Timestamp.Local().Format("[15:04]"))

		if msg.IsFromUser {
			role := UserStyle.Render("You")
			if msg.Status == model.StatusFailed {
				role += " " + DangerStyle.Render("(not sent)")
			}
			content.WriteString(formatUserMessage(timestamp, role, msg.Content))
			continue
		}

		body := msg.Content
		if r, ok := rendered[msg.ID]; ok {
			body = r
		}
		content.WriteString(fmt.Sprintf("%s %s\n%s\n\n", timestamp, AssistantStyle.Render("Assistant"), body))
	}

	if waiting != "" {
		timestamp := DimStyle.Render(time.Now().Format("[15:04]"))
		content.WriteString(fmt.Sprintf("%s %s\n%s\n", timestamp, AssistantStyle.Render("Assistant"), waiting))
	}
	return content.String()
}

func formatUserMessage(timestamp, role, content string) string {
	bar := UserStyle.Render(codeBar)

	var result strings.Builder
	result.WriteString(fmt.Sprintf("%s %s %s\n", bar, timestamp, role))
	for _, line := range strings.Split(content, "\n") {
		result.WriteString(fmt.Sprintf("%s %s\n", bar, line))
	}
	result.WriteString("\n")
	return result.String()
}

// truncate shortens s to width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "...")
}

// renderMarkdown converts an assistant reply to terminal markup.
func renderMarkdown(content string, width int) string {
	if width < 20 {
		width = 20
	}
	content = preprocessLinks(content)

	// Autolink is off so URLs stay plain for the terminal to detect.
	ext := markdown.Extensions() &^ parser.Autolink
	p := parser.NewWithExtensions(ext)
	r := markdown.NewRenderer(width-4, 0)
	doc := p.Parse([]byte(content))
	out := string(gomarkdown.Render(doc, r))

	out = fixInlineCode(out)
	out = colorURLs(out)
	out = frameCodeBlocks(out, width)
	return strings.TrimRight(out, "\n")
}

func renderMarkdownCmd(messageID, content string, width int) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rendered := renderMarkdown(content, width)
		if config.Debug && config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Rendered markdown for %s (%d chars) in %v", messageID, len(content), time.Since(start))
		}
		return markdownRenderedMsg{messageID: messageID, rendered: rendered}
	}
}

// preprocessLinks reduces [text](url) to the bare url.
func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

// fixInlineCode swaps the renderer's blue-background inline code for red text.
func fixInlineCode(s string) string {
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func colorURLs(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if !strings.Contains(line, codeBar) {
			lines[i] = urlRegex.ReplaceAllString(line, "\x1b[31m$1\x1b[0m")
		}
	}
	return strings.Join(lines, "\n")
}

// frameCodeBlocks replaces the renderer's bar-prefixed code lines with a
// block framed by horizontal rules.
func frameCodeBlocks(s string, width int) string {
	ruleWidth := width - 4
	if ruleWidth < 10 {
		ruleWidth = 10
	}
	darkGray := "\x1b[90m"
	reset := "\x1b[0m"

	label := "[code]"
	left := (ruleWidth - len(label)) / 2
	top := darkGray + strings.Repeat("━", left) + reset + label + darkGray + strings.Repeat("━", ruleWidth-len(label)-left) + reset
	bottom := darkGray + strings.Repeat("━", ruleWidth) + reset

	var result []string
	inCode := false
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, codeBar) {
			if !inCode {
				inCode = true
				result = append(result, "", top)
			}
			result = append(result, stripCodeBlockPrefix(line))
			continue
		}
		if inCode {
			inCode = false
			result = append(result, bottom, "")
		}
		result = append(result, line)
	}
	if inCode {
		result = append(result, bottom)
	}
	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, codeBar)
	if idx < 0 {
		return line
	}
	after := idx + len(codeBar)
	if after < len(line) && line[after] == ' ' {
		after++
	}
	return line[after:]
}
