package agent

import (
	"context"
	"encoding/json"
	"strings"

	"wikichat/internal/llm"
)

type Tool interface {
	Name() string
	Description() string
	InputSchema() any
	Execute(ctx context.Context, input string) (string, error)
}

// LookupFunc answers a free-text query.
type LookupFunc func(ctx context.Context, query string) (string, error)

// funcTool is a tool described by name and description whose only input is
// a free-text query.
type funcTool struct {
	name        string
	description string
	fn          LookupFunc
}

// NewTool wraps fn as a tool. Execute accepts either the raw query text or a
// JSON object with a "query" field, so the same tool serves text-protocol and
// function-calling strategies.
func NewTool(name, description string, fn LookupFunc) Tool {
	return &funcTool{name: name, description: description, fn: fn}
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return t.description }

func (t *funcTool) InputSchema() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "What to look up",
			},
		},
		"required":             []string{"query"},
		"additionalProperties": false,
	}
}

func (t *funcTool) Execute(ctx context.Context, input string) (string, error) {
	return t.fn(ctx, queryFromInput(input))
}

func queryFromInput(input string) string {
	trimmed := strings.TrimSpace(input)
	if strings.HasPrefix(trimmed, "{") {
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(trimmed), &args); err == nil {
			return args.Query
		}
	}
	return trimmed
}

// Registry holds tools by name, preserving registration order. It is built
// before the agent and not modified afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds t, replacing any tool with the same name.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Specs describes the registered tools for native function calling.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, t := range r.All() {
		schema, _ := t.InputSchema().(map[string]any)
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  schema,
		})
	}
	return specs
}
