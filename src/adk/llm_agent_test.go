package adk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolgate/gateway-client/src/tools"
)

type scriptedLLM struct {
	mu        sync.Mutex
	responses []llmResponse
	idx       int
	seen      [][]Message
}

type llmResponse struct {
	content string
	err     error
}

func newScriptedLLM(responses ...llmResponse) *scriptedLLM {
	return &scriptedLLM{responses: responses}
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, messages)
	if s.idx >= len(s.responses) {
		return "", errors.New("unexpected llm call")
	}
	resp := s.responses[s.idx]
	s.idx++
	return resp.content, resp.err
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

type recordingCaller struct {
	requests []tools.CallRequest
	handle   func(req tools.CallRequest) (*tools.CallResult, error)
}

func (r *recordingCaller) CallTool(ctx context.Context, req tools.CallRequest) (*tools.CallResult, error) {
	r.requests = append(r.requests, req)
	if r.handle != nil {
		return r.handle(req)
	}
	return &tools.CallResult{OK: true, Data: map[string]any{"sum": 8}}, nil
}

var sumCatalog = []tools.Tool{{
	Name:        "sum",
	Description: "Adds two numbers",
	Parameters:  map[string]any{"type": "object", "required": []any{"a", "b"}},
}}

func TestRunTurnSingleToolCall(t *testing.T) {
	llm := newScriptedLLM(
		llmResponse{content: `TOOL_CALL: sum {"a": 5, "b": 3}`},
		llmResponse{content: "The sum is 8."},
	)
	caller := &recordingCaller{}
	var events []EventType
	agent := NewLLMAgent(llm,
		WithProtocol(MarkerProtocol{}),
		WithObserver(func(ev Event) { events = append(events, ev.Type) }),
	)

	res, err := agent.RunTurn(context.Background(), sumCatalog, "What is 5+3?", caller)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFinal, res.Outcome)
	assert.Equal(t, "The sum is 8.", res.Answer)
	assert.Equal(t, 2, res.Iterations)
	require.Len(t, caller.requests, 1)
	assert.Equal(t, "sum", caller.requests[0].Tool)
	assert.Equal(t, map[string]any{"a": float64(5), "b": float64(3)}, caller.requests[0].Arguments)

	require.Len(t, llm.seen, 2)
	second := llm.seen[1]
	require.Len(t, second, 4)
	assert.Equal(t, RoleSystem, second[0].Role)
	assert.Contains(t, second[0].Content, "TOOL: sum")
	assert.Contains(t, second[0].Content, "Adds two numbers")
	assert.Contains(t, second[0].Content, `"required":["a","b"]`)
	assert.Equal(t, Message{Role: RoleUser, Content: "What is 5+3?"}, second[1])
	assert.Equal(t, RoleAssistant, second[2].Role)
	assert.Equal(t, `Tool "sum" returned: {"sum":8}`, second[3].Content)

	assert.Equal(t, []EventType{
		EventModelRequest, EventModelResponse, EventToolCall, EventToolResult,
		EventModelRequest, EventModelResponse, EventAnswer,
	}, events)
}

func TestRunTurnDefaultProtocolRunsMarkerCall(t *testing.T) {
	llm := newScriptedLLM(
		llmResponse{content: `TOOL_CALL: quiz {"question":"2+2","answer":"4"}`},
		llmResponse{content: `{"action":"final_answer","answer":"Correct."}`},
	)
	caller := &recordingCaller{}
	agent := NewLLMAgent(llm)

	res, err := agent.RunTurn(context.Background(), sumCatalog, "quiz me", caller)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFinal, res.Outcome)
	assert.Equal(t, "Correct.", res.Answer)
	require.Len(t, caller.requests, 1)
	assert.Equal(t, "quiz", caller.requests[0].Tool)
	assert.Equal(t, map[string]any{"question": "2+2", "answer": "4"}, caller.requests[0].Arguments)
}

func TestRunTurnStopsAtIterationLimit(t *testing.T) {
	responses := make([]llmResponse, 10)
	for i := range responses {
		responses[i] = llmResponse{content: `{"action":"call_tool","tool":"sum","arguments":{"a":1,"b":1}}`}
	}
	llm := newScriptedLLM(responses...)
	caller := &recordingCaller{}
	agent := NewLLMAgent(llm)

	res, err := agent.RunTurn(context.Background(), sumCatalog, "loop forever", caller)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxIterations, llm.calls())
	assert.Equal(t, OutcomeTruncated, res.Outcome)
	assert.Equal(t, DefaultMaxIterations, res.Iterations)
	// The final allowed reply's call is not executed.
	assert.Len(t, caller.requests, DefaultMaxIterations-1)
	assert.Contains(t, res.Answer, "without a final answer")
}

func TestRunTurnCustomIterationLimit(t *testing.T) {
	llm := newScriptedLLM(
		llmResponse{content: "TOOL_CALL: sum {}"},
		llmResponse{content: "TOOL_CALL: sum {}"},
	)
	agent := NewLLMAgent(llm, WithMaxIterations(1), WithProtocol(MarkerProtocol{}))

	res, err := agent.RunTurn(context.Background(), sumCatalog, "hi", &recordingCaller{})
	require.NoError(t, err)
	assert.Equal(t, 1, llm.calls())
	assert.Equal(t, OutcomeTruncated, res.Outcome)
	assert.Empty(t, res.Calls)
}

func TestRunTurnMalformedArgumentsBecomeEmptyObject(t *testing.T) {
	llm := newScriptedLLM(
		llmResponse{content: "TOOL_CALL: sum {not json"},
		llmResponse{content: "done"},
	)
	caller := &recordingCaller{}
	agent := NewLLMAgent(llm, WithProtocol(MarkerProtocol{}))

	_, err := agent.RunTurn(context.Background(), sumCatalog, "x", caller)
	require.NoError(t, err)
	require.Len(t, caller.requests, 1)
	assert.Equal(t, map[string]any{}, caller.requests[0].Arguments)
}

func TestRunTurnFeedsToolFailuresBack(t *testing.T) {
	llm := newScriptedLLM(
		llmResponse{content: `{"action":"call_tool","tool":"sum","arguments":{}}`},
		llmResponse{content: `{"action":"call_tool","tool":"missing","arguments":{}}`},
		llmResponse{content: `{"action":"final_answer","answer":"Could not compute."}`},
	)
	caller := &recordingCaller{handle: func(req tools.CallRequest) (*tools.CallResult, error) {
		if req.Tool == "sum" {
			return &tools.CallResult{Error: &tools.ToolError{Code: "INVALID_INPUT", Message: "a and b are required"}}, nil
		}
		return nil, errors.New("connection refused")
	}}
	agent := NewLLMAgent(llm)

	res, err := agent.RunTurn(context.Background(), sumCatalog, "sum", caller)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFinal, res.Outcome)
	assert.Equal(t, "Could not compute.", res.Answer)
	require.Len(t, res.Calls, 2)
	assert.Equal(t, `Tool "sum" failed: INVALID_INPUT: a and b are required`, res.Calls[0].Feedback)
	assert.Equal(t, `Tool "missing" failed: connection refused`, res.Calls[1].Feedback)

	third := llm.seen[2]
	assert.Equal(t, res.Calls[1].Feedback, third[len(third)-1].Content)
}

func TestRunTurnTruncatesLargeToolResults(t *testing.T) {
	llm := newScriptedLLM(
		llmResponse{content: "TOOL_CALL: sum {}"},
		llmResponse{content: "ok"},
	)
	caller := &recordingCaller{handle: func(tools.CallRequest) (*tools.CallResult, error) {
		return &tools.CallResult{OK: true, Data: strings.Repeat("x", 5000)}, nil
	}}
	agent := NewLLMAgent(llm, WithProtocol(MarkerProtocol{}))

	res, err := agent.RunTurn(context.Background(), sumCatalog, "big", caller)
	require.NoError(t, err)
	require.Len(t, res.Calls, 1)
	assert.LessOrEqual(t, len([]rune(res.Calls[0].Feedback)), maxToolResultChars+len("…(truncated)"))
	assert.True(t, strings.HasSuffix(res.Calls[0].Feedback, "…(truncated)"))
}

func TestRunTurnModelFailure(t *testing.T) {
	llm := newScriptedLLM(llmResponse{err: errors.New("rate limited")})
	agent := NewLLMAgent(llm)

	res, err := agent.RunTurn(context.Background(), nil, "hi", &recordingCaller{})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Answer, "rate limited")
	assert.True(t, strings.HasPrefix(res.Answer, "Error: "))
}

func TestRunTurnWithoutModel(t *testing.T) {
	agent := NewLLMAgent(nil)

	res, err := agent.RunTurn(context.Background(), nil, "hi", &recordingCaller{})
	require.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestRunTurnCancelledContext(t *testing.T) {
	llm := newScriptedLLM(llmResponse{content: "never"})
	agent := NewLLMAgent(llm)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := agent.RunTurn(ctx, nil, "hi", &recordingCaller{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Zero(t, llm.calls())
}

func TestSystemPromptWithoutTools(t *testing.T) {
	prompt := SystemPrompt(nil, JSONProtocol{})
	assert.Contains(t, prompt, "No tools are currently available")
	assert.Contains(t, prompt, `"action": "final_answer"`)
}
