package adk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerProtocolParse(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		reply  string
		calls  []ToolCall
		answer string
	}{
		"plain answer": {
			reply:  "The sum is 8.",
			answer: "The sum is 8.",
		},
		"single call": {
			reply: `TOOL_CALL: sum {"a": 5, "b": 3}`,
			calls: []ToolCall{{Tool: "sum", Arguments: map[string]any{"a": float64(5), "b": float64(3)}}},
		},
		"call among prose": {
			reply:  "Let me check.\n  TOOL_CALL: hello {\"name\":\"Ana\"}\nOne moment.",
			calls:  []ToolCall{{Tool: "hello", Arguments: map[string]any{"name": "Ana"}}},
			answer: "Let me check.\nOne moment.",
		},
		"malformed arguments": {
			reply: "TOOL_CALL: sum {a: 5",
			calls: []ToolCall{{Tool: "sum", Arguments: map[string]any{}}},
		},
		"missing arguments": {
			reply: "TOOL_CALL: list-top-customers",
			calls: []ToolCall{{Tool: "list-top-customers", Arguments: map[string]any{}}},
		},
		"non object arguments": {
			reply: "TOOL_CALL: sum [1,2]",
			calls: []ToolCall{{Tool: "sum", Arguments: map[string]any{}}},
		},
		"several calls": {
			reply: "TOOL_CALL: a {}\nTOOL_CALL: b {\"x\":1}",
			calls: []ToolCall{
				{Tool: "a", Arguments: map[string]any{}},
				{Tool: "b", Arguments: map[string]any{"x": float64(1)}},
			},
		},
		"empty marker": {
			reply:  "TOOL_CALL:\ndone",
			answer: "done",
		},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			d := MarkerProtocol{}.Parse(tc.reply)
			assert.Equal(t, tc.calls, d.Calls)
			assert.Equal(t, tc.answer, d.Answer)
		})
	}
}

func TestJSONProtocolParse(t *testing.T) {
	t.Parallel()

	t.Run("call", func(t *testing.T) {
		d := JSONProtocol{}.Parse(`{"action":"call_tool","tool":"sum","arguments":{"a":1,"b":2}}`)
		require.Len(t, d.Calls, 1)
		assert.Equal(t, "sum", d.Calls[0].Tool)
		assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, d.Calls[0].Arguments)
	})

	t.Run("fenced call with string arguments", func(t *testing.T) {
		d := JSONProtocol{}.Parse("```json\n{\"action\":\"call_tool\",\"tool\":\"hello\",\"arguments\":\"{\\\"name\\\":\\\"x\\\"}\"}\n```")
		require.Len(t, d.Calls, 1)
		assert.Equal(t, map[string]any{"name": "x"}, d.Calls[0].Arguments)
	})

	t.Run("missing arguments", func(t *testing.T) {
		d := JSONProtocol{}.Parse(`{"action":"call_tool","tool":"hello"}`)
		require.Len(t, d.Calls, 1)
		assert.Equal(t, map[string]any{}, d.Calls[0].Arguments)
	})

	t.Run("final answer with trailing prose", func(t *testing.T) {
		d := JSONProtocol{}.Parse(`{"action":"final_answer","answer":"It is {8}."} thanks`)
		assert.Empty(t, d.Calls)
		assert.Equal(t, "It is {8}.", d.Answer)
	})

	t.Run("plain text", func(t *testing.T) {
		d := JSONProtocol{}.Parse("  just text ")
		assert.Empty(t, d.Calls)
		assert.Equal(t, "just text", d.Answer)
	})

	t.Run("marker fallback", func(t *testing.T) {
		d := JSONProtocol{}.Parse("TOOL_CALL: sum {\"a\":1}")
		require.Len(t, d.Calls, 1)
		assert.Equal(t, "sum", d.Calls[0].Tool)
	})

	t.Run("marker arguments with an answer key", func(t *testing.T) {
		d := JSONProtocol{}.Parse(`TOOL_CALL: quiz {"question":"2+2","answer":"4"}`)
		require.Len(t, d.Calls, 1)
		assert.Equal(t, "quiz", d.Calls[0].Tool)
		assert.Equal(t, map[string]any{"question": "2+2", "answer": "4"}, d.Calls[0].Arguments)
		assert.Empty(t, d.Answer)
	})

	t.Run("final answer drops marker lines", func(t *testing.T) {
		d := JSONProtocol{}.Parse(`{"action":"final_answer","answer":"Done.\nTOOL_CALL: sum {}"}`)
		assert.Empty(t, d.Calls)
		assert.Equal(t, "Done.", d.Answer)
	})

	t.Run("answer without action", func(t *testing.T) {
		d := JSONProtocol{}.Parse(`{"answer":"Hi there"}`)
		assert.Empty(t, d.Calls)
		assert.Equal(t, "Hi there", d.Answer)
	})

	t.Run("unrelated object", func(t *testing.T) {
		reply := `The result was {"total": 3}`
		d := JSONProtocol{}.Parse(reply)
		assert.Empty(t, d.Calls)
		assert.Equal(t, reply, d.Answer)
	})
}

func TestProtocolByName(t *testing.T) {
	t.Parallel()

	p, ok := ProtocolByName("")
	require.True(t, ok)
	assert.Equal(t, ProtocolJSON, p.Name())

	p, ok = ProtocolByName("MARKER")
	require.True(t, ok)
	assert.Equal(t, ProtocolMarker, p.Name())

	_, ok = ProtocolByName("xml")
	assert.False(t, ok)
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":"}"}`, extractJSON(`prefix {"a":"}"} suffix`))
	assert.Equal(t, `{"a":{"b":1}}`, extractJSON("```\n{\"a\":{\"b\":1}}\n```"))
	assert.Empty(t, extractJSON("no braces"))
	assert.Empty(t, extractJSON(`{"unterminated": 1`))
}
