package llm

import (
	"context"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation sent to a provider.
type Message struct {
	Role    Role
	Content string

	// ToolCalls are the calls requested by an assistant message.
	ToolCalls []ToolCall

	// ToolCallID and Name identify the call a tool message answers.
	ToolCallID string
	Name       string

	// raw is the provider's own representation of an assistant turn, replayed
	// verbatim when present so provider-specific metadata survives.
	raw any
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object
}

// ToolSpec describes a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON Schema
}

type Request struct {
	Messages []Message
	Tools    []ToolSpec

	// Stop sequences end generation early on providers that support them.
	Stop []string
}

type Response struct {
	Content      string
	ToolCalls    []ToolCall
	Model        string
	InputTokens  int64
	OutputTokens int64

	raw any
}

// AssistantMessage turns the response into the message that continues the
// conversation.
func (r *Response) AssistantMessage() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   r.Content,
		ToolCalls: r.ToolCalls,
		raw:       r.raw,
	}
}

// Provider is a hosted language model.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Settings selects and parameterizes a provider.
type Settings struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
}

// New builds the provider named by s.Provider.
func New(ctx context.Context, s Settings) (Provider, error) {
	switch s.Provider {
	case "gemini":
		return NewGemini(ctx, s.APIKey, s.Model, s.Temperature, WithGeminiBaseURL(s.BaseURL))
	case "openai":
		return NewOpenAI(s.BaseURL, s.APIKey, s.Model, s.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", s.Provider)
	}
}
