package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"wikichat/internal/llm"
)

const (
	reactPrefix = "Answer the following questions as best you can. You have access to the following tools:"

	reactFormat = `Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question`

	reactSuffix = `Begin!

Question: %s
Thought:`

	finalAnswerMarker = "Final Answer:"
)

var (
	actionRe = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)

	reactStop = []string{"\nObservation:", "\n\tObservation:"}

	// ErrOutputParse marks model output that follows neither the action nor
	// the final answer format. Its text reaches clients verbatim.
	ErrOutputParse = errors.New("Could not parse LLM output")
)

// reactStrategy is the zero-shot ReAct text protocol: the model sees every
// tool as "name: description", writes Thought/Action/Action Input lines, and
// each tool result comes back as an Observation appended to the scratchpad.
type reactStrategy struct {
	provider      llm.Provider
	registry      *Registry
	maxIterations int
	header        string
}

func newReActStrategy(provider llm.Provider, registry *Registry, maxIterations int) *reactStrategy {
	var b strings.Builder
	b.WriteString(reactPrefix)
	b.WriteString("\n\n")
	for _, t := range registry.All() {
		fmt.Fprintf(&b, "%s: %s\n", t.Name(), t.Description())
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, reactFormat, strings.Join(registry.Names(), ", "))
	b.WriteString("\n\n")

	return &reactStrategy{
		provider:      provider,
		registry:      registry,
		maxIterations: maxIterations,
		header:        b.String(),
	}
}

func (s *reactStrategy) Name() string { return "zero-shot-react-description" }

func (s *reactStrategy) Run(ctx context.Context, message string) (string, error) {
	prompt := s.header + fmt.Sprintf(reactSuffix, message)
	var scratchpad strings.Builder

	for i := 0; i < s.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := generate(ctx, s.provider, llm.Request{
			Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt + scratchpad.String()}},
			Stop:     reactStop,
		}, i)
		if err != nil {
			return "", err
		}

		text := cutObservation(resp.Content)
		step, err := parseReAct(text)
		if err != nil {
			return "", err
		}
		if step.final {
			slog.Debug("agent.react: final answer", "request_id", RequestIDFromContext(ctx), "iteration", i)
			return step.answer, nil
		}

		slog.Debug("agent.react: action",
			"request_id", RequestIDFromContext(ctx),
			"iteration", i,
			"tool", step.tool,
			"input", step.input,
		)

		observation, err := s.act(ctx, step)
		if err != nil {
			return "", err
		}

		scratchpad.WriteString(text)
		scratchpad.WriteString("\nObservation: ")
		scratchpad.WriteString(observation)
		scratchpad.WriteString("\nThought:")
	}

	return stoppedAnswer, nil
}

// act runs the chosen tool. An unknown tool name is reported back to the
// model as the observation; a failing tool ends the run.
func (s *reactStrategy) act(ctx context.Context, step reactStep) (string, error) {
	tool, ok := s.registry.Get(step.tool)
	if !ok {
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", step.tool, strings.Join(s.registry.Names(), ", ")), nil
	}
	out, err := withTrace(tool).Execute(ctx, step.input)
	if err != nil {
		return "", fmt.Errorf("%s: %w", tool.Name(), err)
	}
	return out, nil
}

type reactStep struct {
	final  bool
	answer string
	tool   string
	input  string
}

// parseReAct reads one model turn. A turn must contain either an action with
// its input or a final answer, not both.
func parseReAct(text string) (reactStep, error) {
	hasFinal := strings.Contains(text, finalAnswerMarker)
	m := actionRe.FindStringSubmatch(text)

	switch {
	case m != nil && hasFinal:
		return reactStep{}, fmt.Errorf("%w: both a final answer and a parse-able action: %s", ErrOutputParse, text)
	case m != nil:
		input := strings.Trim(strings.TrimSpace(m[2]), `"`)
		return reactStep{tool: strings.TrimSpace(m[1]), input: input}, nil
	case hasFinal:
		_, answer, _ := strings.Cut(text, finalAnswerMarker)
		return reactStep{final: true, answer: strings.TrimSpace(answer)}, nil
	default:
		return reactStep{}, fmt.Errorf("%w: `%s`", ErrOutputParse, text)
	}
}

// cutObservation drops anything from the first Observation line on, for
// providers that ignore stop sequences.
func cutObservation(text string) string {
	for _, stop := range reactStop {
		if i := strings.Index(text, stop); i >= 0 {
			text = text[:i]
		}
	}
	return text
}
