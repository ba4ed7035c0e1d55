package tools

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/toolgate/gateway-client/src/json"
)

// Tool holds the metadata the gateway publishes for a single tool.
type Tool struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	Domain         string   `json:"domain" yaml:"domain"`
	RequiredScopes []string `json:"requiredScopes" yaml:"requiredScopes"`
	// Parameters is the tool's argument schema, kept opaque.
	Parameters any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// UnmarshalJSON accepts the schema under either "parameters" or the MCP
// style "inputSchema" key.
func (t *Tool) UnmarshalJSON(data []byte) error {
	type Alias Tool
	aux := struct {
		*Alias
		InputSchema any `json:"inputSchema"`
	}{Alias: (*Alias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if t.Parameters == nil && aux.InputSchema != nil {
		t.Parameters = aux.InputSchema
	}
	return nil
}

// CallRequest names a tool and the arguments to invoke it with.
type CallRequest struct {
	Tool      string `json:"-"`
	Arguments any    `json:"arguments"`
}

// NewCallRequest builds a CallRequest, substituting an empty object for nil
// arguments.
func NewCallRequest(tool string, args any) CallRequest {
	if args == nil {
		args = map[string]any{}
	}
	return CallRequest{Tool: tool, Arguments: args}
}

// ToolError is the domain error carried by an ok:false envelope. It is
// distinct from transport and HTTP failures.
type ToolError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	// Fields holds every key of the error object, including ones not
	// modelled above (for example required/provided scopes).
	Fields map[string]any `json:"-"`
}

func (e *ToolError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "Unknown error"
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

func (e *ToolError) UnmarshalJSON(data []byte) error {
	type Alias ToolError
	if err := json.Unmarshal(data, (*Alias)(e)); err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err == nil {
		e.Fields = fields
	}
	return nil
}

// CallContext is the request context the gateway echoes back on success.
type CallContext struct {
	RequestID string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty" yaml:"actor_id,omitempty"`
}

// CallResult is the decoded tool call envelope: success carries Data,
// failure carries Error.
type CallResult struct {
	OK      bool         `json:"ok"`
	Data    any          `json:"data,omitempty"`
	Error   *ToolError   `json:"error,omitempty"`
	Context *CallContext `json:"context,omitempty"`
}

// Err returns the domain error of a failed call, or nil.
func (r *CallResult) Err() error {
	if r == nil || r.OK {
		return nil
	}
	if r.Error == nil {
		return &ToolError{Message: "Unknown error"}
	}
	return r.Error
}

// Text renders the payload (or the error message) as a single string.
// Scalars are printed directly; everything else as compact JSON.
func (r *CallResult) Text() string {
	if r == nil {
		return ""
	}
	if !r.OK {
		return r.Err().Error()
	}
	return PayloadText(r.Data)
}

// PayloadText renders an arbitrary payload for humans and models.
func PayloadText(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		return json.Compact(v)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return json.Compact(v)
}

// ParseArguments decodes user supplied JSON arguments. Blank input means
// an empty object.
func ParseArguments(text string) (any, error) {
	if strings.TrimSpace(text) == "" {
		return map[string]any{}, nil
	}
	var args any
	if err := json.Unmarshal([]byte(text), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON in arguments: %w", err)
	}
	return args, nil
}

// ParseKeyValues turns key=value pairs into an argument object. Values that
// are valid JSON literals keep their type; anything else is a string.
func ParseKeyValues(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("argument %q is not key=value", p)
		}
		out[k] = coerce(v)
	}
	return out, nil
}

func coerce(v string) any {
	var decoded any
	if err := json.Unmarshal([]byte(v), &decoded); err == nil {
		return decoded
	}
	return v
}
