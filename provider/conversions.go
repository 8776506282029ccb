package provider

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go/v3"

	"relaychat/model"
)

// ConvertToOpenAIMessages builds an OpenAI chat request body: the system
// instruction, the history in chronological order, then the new user message.
//
// Only Content and the author are carried over; IDs, timestamps and status
// stay at the relaychat layer.
func ConvertToOpenAIMessages(system string, history []model.Message, message string) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if system != "" {
		result = append(result, openai.SystemMessage(system))
	}
	for _, msg := range history {
		if msg.IsFromUser {
			result = append(result, openai.UserMessage(msg.Content))
		} else {
			result = append(result, openai.AssistantMessage(msg.Content))
		}
	}
	return append(result, openai.UserMessage(message))
}

// convertToAnthropicMessages converts history plus the new message to
// Anthropic format. The system instruction travels separately in the
// request's System field.
//
// Anthropic requires the first message to come from the user, so leading
// assistant turns left over from history trimming are dropped.
func convertToAnthropicMessages(history []model.Message, message string) []anthropic.MessageParam {
	start := 0
	for start < len(history) && !history[start].IsFromUser {
		start++
	}

	result := make([]anthropic.MessageParam, 0, len(history)-start+1)
	for _, msg := range history[start:] {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.IsFromUser {
			result = append(result, anthropic.NewUserMessage(block))
		} else {
			result = append(result, anthropic.NewAssistantMessage(block))
		}
	}
	return append(result, anthropic.NewUserMessage(anthropic.NewTextBlock(message)))
}

// ConvertToOllamaMessages converts the prompt to Ollama api.Message values.
func ConvertToOllamaMessages(system string, history []model.Message, message string) []api.Message {
	result := make([]api.Message, 0, len(history)+2)
	if system != "" {
		result = append(result, api.Message{Role: "system", Content: system})
	}
	for _, msg := range history {
		result = append(result, api.Message{Role: msg.Role(), Content: msg.Content})
	}
	return append(result, api.Message{Role: "user", Content: message})
}

// BuildTranscriptPrompt renders the prompt as plain text for completion-style
// endpoints (HuggingFace Inference):
//
//	System: ...
//
//	User: ...
//	Assistant: ...
//	User: <message>
//	Assistant:
func BuildTranscriptPrompt(system string, history []model.Message, message string) string {
	var b strings.Builder
	if system != "" {
		b.WriteString("System: ")
		b.WriteString(system)
		b.WriteString("\n\n")
	}
	for _, msg := range history {
		if msg.IsFromUser {
			b.WriteString("User: ")
		} else {
			b.WriteString("Assistant: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")
	return b.String()
}

// cutAtNextTurn trims a completion at the point where the model starts
// writing the next user turn itself.
func cutAtNextTurn(text string) string {
	if idx := strings.Index(text, "\nUser:"); idx != -1 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
