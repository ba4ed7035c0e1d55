package adk

import (
	"strings"
	"unicode"

	"github.com/toolgate/gateway-client/src/json"
)

// ToolCall is a single tool request extracted from a model reply.
type ToolCall struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
}

// Directive is the parsed form of one model reply. A reply either requests
// tool calls or carries the final answer text.
type Directive struct {
	Calls  []ToolCall
	Answer string
}

// Protocol turns model replies into directives and describes the reply
// format in the system prompt.
type Protocol interface {
	Name() string
	Instructions() string
	Parse(reply string) Directive
}

// Protocol names accepted by ProtocolByName.
const (
	ProtocolJSON   = "json"
	ProtocolMarker = "marker"
)

// ProtocolByName returns the named protocol, or false when unknown.
func ProtocolByName(name string) (Protocol, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProtocolJSON:
		return JSONProtocol{}, true
	case ProtocolMarker:
		return MarkerProtocol{}, true
	default:
		return nil, false
	}
}

// MarkerPrefix starts a tool request line in the marker protocol.
const MarkerPrefix = "TOOL_CALL:"

// MarkerProtocol recognises lines of the form
//
//	TOOL_CALL: <tool> <json object>
//
// anywhere in the reply. Every other line is answer text.
type MarkerProtocol struct{}

func (MarkerProtocol) Name() string { return ProtocolMarker }

func (MarkerProtocol) Instructions() string {
	return `To call a tool, reply with a line that starts with TOOL_CALL: followed by the tool name and a JSON object of arguments, for example:
TOOL_CALL: sum {"a": 5, "b": 3}
You may request several tools, one per line. Each tool result is sent back to you in a follow-up message.
When you can answer the user, reply with plain text and no TOOL_CALL lines.`
}

func (MarkerProtocol) Parse(reply string) Directive {
	var d Directive
	var kept []string
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, MarkerPrefix) {
			kept = append(kept, line)
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, MarkerPrefix))
		name, argText := rest, ""
		if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
			name, argText = rest[:i], strings.TrimSpace(rest[i:])
		}
		if name == "" {
			continue
		}
		d.Calls = append(d.Calls, ToolCall{Tool: name, Arguments: decodeArguments(argText)})
	}
	d.Answer = strings.TrimSpace(strings.Join(kept, "\n"))
	return d
}

// JSONProtocol expects the reply to be one JSON object:
//
//	{"action":"call_tool","tool":"sum","arguments":{"a":1}}
//	{"action":"final_answer","answer":"..."}
//
// Replies without a JSON object are read with the marker rules, and plain
// text is taken as the final answer.
type JSONProtocol struct{}

func (JSONProtocol) Name() string { return ProtocolJSON }

func (JSONProtocol) Instructions() string {
	return `Respond ONLY with a single JSON object and no other text, in one of these two forms:
{"action": "call_tool", "tool": "<tool name>", "arguments": { ... }}
{"action": "final_answer", "answer": "<your reply to the user>"}
Use the exact tool names and argument keys listed above. Each tool result is sent back to you in a follow-up message.`
}

type jsonReply struct {
	Action    string     `json:"action"`
	Tool      string     `json:"tool"`
	Arguments any        `json:"arguments"`
	Answer    string     `json:"answer"`
	Calls     []jsonCall `json:"calls"`
}

type jsonCall struct {
	Tool      string `json:"tool"`
	Arguments any    `json:"arguments"`
}

func (JSONProtocol) Parse(reply string) Directive {
	raw := extractJSON(reply)
	if raw == "" {
		return MarkerProtocol{}.Parse(reply)
	}

	var r jsonReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return MarkerProtocol{}.Parse(reply)
	}

	switch strings.ToLower(r.Action) {
	case "call_tool", "tool_call", "call":
		var d Directive
		if r.Tool != "" {
			d.Calls = append(d.Calls, ToolCall{Tool: r.Tool, Arguments: coerceArguments(r.Arguments)})
		}
		for _, c := range r.Calls {
			if c.Tool != "" {
				d.Calls = append(d.Calls, ToolCall{Tool: c.Tool, Arguments: coerceArguments(c.Arguments)})
			}
		}
		if len(d.Calls) > 0 {
			return d
		}
	case "final_answer", "answer", "final":
		if answer := stripMarkers(r.Answer); answer != "" {
			return Directive{Answer: answer}
		}
	}
	// Without an action the object may be the arguments of a marker line.
	if hasMarker(reply) {
		return MarkerProtocol{}.Parse(reply)
	}
	if answer := strings.TrimSpace(r.Answer); answer != "" {
		return Directive{Answer: answer}
	}
	return Directive{Answer: strings.TrimSpace(reply)}
}

func hasMarker(reply string) bool {
	for _, line := range strings.Split(reply, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), MarkerPrefix) {
			return true
		}
	}
	return false
}

// stripMarkers drops TOOL_CALL lines from answer text.
func stripMarkers(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), MarkerPrefix) {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// decodeArguments parses a JSON object. Anything else yields an empty object.
func decodeArguments(text string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(text) == "" {
		return args
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err != nil || parsed == nil {
		return args
	}
	return parsed
}

// coerceArguments accepts an object or a string holding a JSON object.
func coerceArguments(v any) map[string]any {
	switch a := v.(type) {
	case map[string]any:
		return a
	case string:
		return decodeArguments(a)
	default:
		return map[string]any{}
	}
}

// extractJSON finds the first balanced JSON object in a reply, skipping
// markdown fences and trailing prose.
func extractJSON(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
