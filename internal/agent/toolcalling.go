package agent

import (
	"context"
	"log/slog"
	"sync"

	"wikichat/internal/llm"
)

const toolCallingSystemPrompt = "Answer the user's question. Use the available tools when you need facts you are not sure about."

// toolCallingStrategy relies on the provider's native function calling. The
// model reasons about the current state and picks tools in one turn; tool
// results, including errors, go back into context so the next turn can adapt.
// The run ends when a turn carries no tool calls.
type toolCallingStrategy struct {
	provider      llm.Provider
	registry      *Registry
	tools         []llm.ToolSpec
	maxIterations int
}

func newToolCallingStrategy(provider llm.Provider, registry *Registry, maxIterations int) *toolCallingStrategy {
	return &toolCallingStrategy{
		provider:      provider,
		registry:      registry,
		tools:         registry.Specs(),
		maxIterations: maxIterations,
	}
}

func (s *toolCallingStrategy) Name() string { return "tool-calling" }

func (s *toolCallingStrategy) Run(ctx context.Context, message string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: toolCallingSystemPrompt},
		{Role: llm.RoleUser, Content: message},
	}

	for i := 0; i < s.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := generate(ctx, s.provider, llm.Request{Messages: messages, Tools: s.tools}, i)
		if err != nil {
			return "", err
		}

		if len(resp.ToolCalls) == 0 {
			return resp.Content, nil
		}

		messages = append(messages, resp.AssistantMessage())
		messages = append(messages, s.act(ctx, resp.ToolCalls)...)
	}

	return stoppedAnswer, nil
}

// act executes tool calls in parallel and returns their results as tool
// messages, in call order.
func (s *toolCallingStrategy) act(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	var wg sync.WaitGroup
	results := make([]llm.Message, len(calls))

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			results[i] = llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Name: call.Name}

			tool, ok := s.registry.Get(call.Name)
			if !ok {
				slog.Warn("unknown tool call", "request_id", RequestIDFromContext(ctx), "name", call.Name)
				results[i].Content = "error: unknown tool"
				return
			}

			out, err := withTrace(tool).Execute(ctx, call.Arguments)
			if err != nil {
				results[i].Content = "error: " + err.Error()
				return
			}
			results[i].Content = out
		}(i, call)
	}

	wg.Wait()
	return results
}
