package adk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/toolgate/gateway-client/src/json"
	"github.com/toolgate/gateway-client/src/tools"
)

// DefaultMaxIterations bounds model invocations per user turn.
const DefaultMaxIterations = 5

// maxToolResultChars caps tool output fed back to the model.
const maxToolResultChars = 2000

// Outcome reports how a turn ended.
type Outcome string

const (
	OutcomeFinal     Outcome = "final"
	OutcomeTruncated Outcome = "truncated"
	OutcomeFailed    Outcome = "failed"
)

// ToolCaller executes one tool call against the gateway.
type ToolCaller interface {
	CallTool(ctx context.Context, req tools.CallRequest) (*tools.CallResult, error)
}

// ToolCallerFunc adapts a function to ToolCaller.
type ToolCallerFunc func(ctx context.Context, req tools.CallRequest) (*tools.CallResult, error)

// CallTool calls f.
func (f ToolCallerFunc) CallTool(ctx context.Context, req tools.CallRequest) (*tools.CallResult, error) {
	return f(ctx, req)
}

// CallRecord captures one executed tool call.
type CallRecord struct {
	Iteration int               `json:"iteration"`
	Tool      string            `json:"tool"`
	Arguments map[string]any    `json:"arguments"`
	Result    *tools.CallResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Feedback  string            `json:"feedback"`
	Duration  time.Duration     `json:"duration"`
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	Answer     string       `json:"answer"`
	Outcome    Outcome      `json:"outcome"`
	Iterations int          `json:"iterations"`
	Calls      []CallRecord `json:"calls,omitempty"`
	Transcript []Message    `json:"transcript,omitempty"`
}

// EventType names a progress notification emitted during a turn.
type EventType string

const (
	EventModelRequest  EventType = "model_request"
	EventModelResponse EventType = "model_response"
	EventToolCall      EventType = "tool_call"
	EventToolResult    EventType = "tool_result"
	EventAnswer        EventType = "answer"
	EventError         EventType = "error"
)

// Event is delivered to observers while a turn runs.
type Event struct {
	Type      EventType
	Iteration int
	Tool      string
	Content   string
}

type llmAgentConfig struct {
	maxIterations int
	protocol      Protocol
	observer      func(Event)
	logger        *slog.Logger
}

// LLMAgentOption mutates the configuration used to construct a new LLMAgent.
type LLMAgentOption func(*llmAgentConfig)

// WithMaxIterations sets the model invocation limit per turn. Values below
// one keep the default.
func WithMaxIterations(n int) LLMAgentOption {
	return func(cfg *llmAgentConfig) {
		if n > 0 {
			cfg.maxIterations = n
		}
	}
}

// WithProtocol selects how tool requests are read from model replies.
func WithProtocol(p Protocol) LLMAgentOption {
	return func(cfg *llmAgentConfig) {
		if p != nil {
			cfg.protocol = p
		}
	}
}

// WithObserver registers a callback for turn progress events.
func WithObserver(fn func(Event)) LLMAgentOption {
	return func(cfg *llmAgentConfig) {
		cfg.observer = fn
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) LLMAgentOption {
	return func(cfg *llmAgentConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// LLMAgent runs the model/tool loop for a single user turn: it shows the
// model the tool catalog, executes the tool calls the model asks for and
// feeds their results back until the model answers or the iteration limit
// is reached.
type LLMAgent struct {
	llm           LLM
	maxIterations int
	protocol      Protocol
	observer      func(Event)
	logger        *slog.Logger
}

// NewLLMAgent creates an agent loop over llm. A nil llm is allowed; every
// turn then fails with ErrModelUnavailable.
func NewLLMAgent(llm LLM, opts ...LLMAgentOption) *LLMAgent {
	cfg := &llmAgentConfig{
		maxIterations: DefaultMaxIterations,
		protocol:      JSONProtocol{},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LLMAgent{
		llm:           llm,
		maxIterations: cfg.maxIterations,
		protocol:      cfg.protocol,
		observer:      cfg.observer,
		logger:        cfg.logger,
	}
}

// MaxIterations returns the per-turn model invocation limit.
func (a *LLMAgent) MaxIterations() int { return a.maxIterations }

// Protocol returns the reply protocol in use.
func (a *LLMAgent) Protocol() Protocol { return a.protocol }

// RunTurn answers userText using the tools in catalog. Tool calls go
// through caller; their failures are fed back to the model rather than
// aborting the turn. A model failure ends the turn with OutcomeFailed and
// a non-nil error; the result still carries a displayable Answer.
func (a *LLMAgent) RunTurn(ctx context.Context, catalog []tools.Tool, userText string, caller ToolCaller) (*TurnResult, error) {
	res := &TurnResult{}
	if a.llm == nil {
		return a.fail(res, ErrModelUnavailable)
	}
	if caller == nil {
		return a.fail(res, errors.New("no tool caller configured"))
	}

	res.Transcript = []Message{
		{Role: RoleSystem, Content: SystemPrompt(catalog, a.protocol)},
		{Role: RoleUser, Content: userText},
	}

	var last Directive
	for res.Iterations < a.maxIterations {
		if err := ctx.Err(); err != nil {
			return a.fail(res, err)
		}
		res.Iterations++
		a.emit(Event{Type: EventModelRequest, Iteration: res.Iterations})

		reply, err := a.llm.Chat(ctx, append([]Message(nil), res.Transcript...))
		if err != nil {
			return a.fail(res, fmt.Errorf("model request failed: %w", err))
		}
		res.Transcript = append(res.Transcript, Message{Role: RoleAssistant, Content: reply})
		a.emit(Event{Type: EventModelResponse, Iteration: res.Iterations, Content: reply})

		last = a.protocol.Parse(reply)
		if len(last.Calls) == 0 {
			res.Outcome = OutcomeFinal
			res.Answer = last.Answer
			if res.Answer == "" {
				res.Answer = "The model returned an empty response."
			}
			a.emit(Event{Type: EventAnswer, Iteration: res.Iterations, Content: res.Answer})
			return res, nil
		}
		// Calls requested by the last allowed reply are never executed.
		if res.Iterations >= a.maxIterations {
			break
		}

		for _, call := range last.Calls {
			rec := a.execute(ctx, caller, res.Iterations, call)
			res.Calls = append(res.Calls, rec)
			res.Transcript = append(res.Transcript, Message{Role: RoleUser, Content: rec.Feedback})
		}
	}

	res.Outcome = OutcomeTruncated
	res.Answer = last.Answer
	if res.Answer == "" {
		res.Answer = fmt.Sprintf("Stopped after %d model calls without a final answer.", res.Iterations)
	}
	a.logger.Warn("agent turn truncated", "iterations", res.Iterations, "pending_calls", len(last.Calls))
	a.emit(Event{Type: EventAnswer, Iteration: res.Iterations, Content: res.Answer})
	return res, nil
}

func (a *LLMAgent) execute(ctx context.Context, caller ToolCaller, iteration int, call ToolCall) CallRecord {
	rec := CallRecord{Iteration: iteration, Tool: call.Tool, Arguments: call.Arguments}
	if rec.Arguments == nil {
		rec.Arguments = map[string]any{}
	}
	a.emit(Event{Type: EventToolCall, Iteration: iteration, Tool: call.Tool, Content: json.Compact(rec.Arguments)})

	start := time.Now()
	result, err := caller.CallTool(ctx, tools.NewCallRequest(call.Tool, rec.Arguments))
	rec.Duration = time.Since(start)
	rec.Result = result

	switch {
	case err != nil:
		rec.Error = err.Error()
		rec.Feedback = fmt.Sprintf("Tool %q failed: %s", call.Tool, err)
	case result == nil:
		rec.Error = "empty response"
		rec.Feedback = fmt.Sprintf("Tool %q failed: empty response", call.Tool)
	case !result.OK:
		rec.Error = result.Err().Error()
		rec.Feedback = fmt.Sprintf("Tool %q failed: %s", call.Tool, rec.Error)
	default:
		rec.Feedback = fmt.Sprintf("Tool %q returned: %s", call.Tool, result.Text())
	}
	rec.Feedback = truncateText(rec.Feedback, maxToolResultChars)

	a.logger.Debug("agent tool call",
		"tool", call.Tool,
		"iteration", iteration,
		"duration", rec.Duration,
		"error", rec.Error,
	)
	a.emit(Event{Type: EventToolResult, Iteration: iteration, Tool: call.Tool, Content: rec.Feedback})
	return rec
}

func (a *LLMAgent) fail(res *TurnResult, err error) (*TurnResult, error) {
	res.Outcome = OutcomeFailed
	res.Answer = "Error: " + err.Error()
	a.logger.Error("agent turn failed", "iterations", res.Iterations, "error", err)
	a.emit(Event{Type: EventError, Iteration: res.Iterations, Content: err.Error()})
	return res, err
}

func (a *LLMAgent) emit(ev Event) {
	if a.observer != nil {
		a.observer(ev)
	}
}

func truncateText(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…(truncated)"
}
