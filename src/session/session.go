// Package session owns the per-user state of the client: the tool catalog,
// the chat history and the current header fields. Every network action of
// a session runs under one lock so that no two gateway or model calls of
// the same session overlap.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/toolgate/gateway-client/src/adk"
	"github.com/toolgate/gateway-client/src/catalog"
	"github.com/toolgate/gateway-client/src/headers"
	"github.com/toolgate/gateway-client/src/tools"
	gwhttp "github.com/toolgate/gateway-client/src/transports/http"
	"github.com/toolgate/gateway-client/src/transports/mcp"
)

// Transport selects the wire protocol used for raw requests.
type Transport string

const (
	TransportREST Transport = "rest"
	TransportMCP  Transport = "mcp"
)

// ParseTransport maps user input to a Transport.
func ParseTransport(s string) (Transport, error) {
	switch Transport(strings.ToLower(strings.TrimSpace(s))) {
	case "", TransportREST:
		return TransportREST, nil
	case TransportMCP:
		return TransportMCP, nil
	default:
		return "", fmt.Errorf("unknown protocol %q (expected rest or mcp)", s)
	}
}

// Options configure a new Session.
type Options struct {
	GatewayURL string
	Timeout    time.Duration
	Fields     headers.Fields
	HTTPClient gwhttp.HTTPDoer
	Agent      *adk.LLMAgent
	Logger     *slog.Logger
}

// Session is one user's client state.
type Session struct {
	id      string
	started time.Time
	logger  *slog.Logger

	// action serializes network calls.
	action sync.Mutex

	fieldsMu sync.RWMutex
	fields   headers.Fields

	rest    *gwhttp.Client
	mcp     *mcp.Client
	agent   *adk.LLMAgent
	catalog *catalog.Cache
	history *Conversation
}

// New creates a standalone session. Most callers go through Manager.Start.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := uuid.NewString()
	logger = logger.With("session", id)

	clientOpts := []gwhttp.Option{gwhttp.WithLogger(logger)}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, gwhttp.WithTimeout(opts.Timeout))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, gwhttp.WithHTTPClient(opts.HTTPClient))
	}
	rest := gwhttp.NewClient(opts.GatewayURL, clientOpts...)

	agent := opts.Agent
	if agent == nil {
		agent = adk.NewLLMAgent(nil, adk.WithLogger(logger))
	}

	return &Session{
		id:      id,
		started: time.Now(),
		logger:  logger,
		fields:  opts.Fields,
		rest:    rest,
		mcp:     mcp.NewClient(rest),
		agent:   agent,
		catalog: catalog.New(),
		history: NewConversation(),
	}
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) StartedAt() time.Time        { return s.started }
func (s *Session) Catalog() *catalog.Cache     { return s.catalog }
func (s *Session) Conversation() *Conversation { return s.history }
func (s *Session) Agent() *adk.LLMAgent        { return s.agent }
func (s *Session) GatewayURL() string          { return s.rest.GatewayURL() }
func (s *Session) BaseURL() string             { return s.rest.BaseURL() }
func (s *Session) MCPEndpoint() string         { return s.mcp.Endpoint() }

// Fields returns the current header inputs.
func (s *Session) Fields() headers.Fields {
	s.fieldsMu.RLock()
	defer s.fieldsMu.RUnlock()
	return s.fields
}

// SetFields replaces the header inputs used by subsequent actions.
func (s *Session) SetFields(f headers.Fields) {
	s.fieldsMu.Lock()
	s.fields = f
	s.fieldsMu.Unlock()
}

// Headers builds the header set from the current fields.
func (s *Session) Headers() headers.Set {
	return headers.Build(s.Fields())
}

// FetchCatalog lists the gateway's tools and replaces the cached catalog.
// On failure the previous catalog is kept.
func (s *Session) FetchCatalog(ctx context.Context) ([]tools.Tool, error) {
	s.action.Lock()
	defer s.action.Unlock()

	list, err := s.rest.ListTools(ctx, s.Headers())
	if err != nil {
		s.logger.Warn("catalog fetch failed", "error", err)
		return nil, err
	}
	s.catalog.Set(list)
	s.logger.Info("catalog fetched", "tools", len(list))
	return s.catalog.Get(), nil
}

// ClearCatalog empties the catalog. The history is not touched.
func (s *Session) ClearCatalog() { s.catalog.Clear() }

// Clear empties the chat history. The catalog is not touched.
func (s *Session) Clear() { s.history.Clear() }

// CallTool invokes one tool through the REST API.
func (s *Session) CallTool(ctx context.Context, name string, args any) (*tools.CallResult, error) {
	s.action.Lock()
	defer s.action.Unlock()
	return s.rest.CallTool(ctx, s.Headers(), tools.NewCallRequest(name, args))
}

// RawREST sends a request through the REST API and returns the status and
// decoded body without interpretation. A nil req lists tools.
func (s *Session) RawREST(ctx context.Context, req *tools.CallRequest) (*gwhttp.RawResponse, error) {
	s.action.Lock()
	defer s.action.Unlock()
	if req == nil {
		return s.rest.RawListTools(ctx, s.Headers())
	}
	return s.rest.RawCallTool(ctx, s.Headers(), *req)
}

// RawMCP is RawREST over the JSON-RPC endpoint.
func (s *Session) RawMCP(ctx context.Context, req *tools.CallRequest) (*gwhttp.RawResponse, error) {
	s.action.Lock()
	defer s.action.Unlock()
	if req == nil {
		return s.mcp.RawListTools(ctx, s.Headers())
	}
	return s.mcp.RawCallTool(ctx, s.Headers(), *req)
}

// Raw dispatches to RawREST or RawMCP.
func (s *Session) Raw(ctx context.Context, t Transport, req *tools.CallRequest) (*gwhttp.RawResponse, error) {
	if t == TransportMCP {
		return s.RawMCP(ctx, req)
	}
	return s.RawREST(ctx, req)
}

// Health probes the gateway's health endpoint.
func (s *Session) Health(ctx context.Context) (map[string]any, error) {
	s.action.Lock()
	defer s.action.Unlock()
	return s.rest.Health(ctx, s.Headers())
}

// SendTurn runs one agent turn over the cached catalog. The user message
// and the assistant reply (answer, truncation notice or error text) are
// both appended to the history, even when the turn fails.
func (s *Session) SendTurn(ctx context.Context, text string) (*adk.TurnResult, error) {
	s.action.Lock()
	defer s.action.Unlock()

	s.history.Append(Message{Role: adk.RoleUser, Content: text})

	h := s.Headers()
	caller := adk.ToolCallerFunc(func(ctx context.Context, req tools.CallRequest) (*tools.CallResult, error) {
		return s.rest.CallTool(ctx, h, req)
	})

	res, err := s.agent.RunTurn(ctx, s.catalog.Get(), text, caller)
	if res == nil {
		res = &adk.TurnResult{Outcome: adk.OutcomeFailed, Answer: "Error: " + errString(err)}
	}
	s.history.Append(Message{
		Role:    adk.RoleAssistant,
		Content: res.Answer,
		Outcome: res.Outcome,
		Calls:   res.Calls,
	})
	s.logger.Info("agent turn finished",
		"outcome", res.Outcome,
		"iteration", res.Iterations,
		"tool_calls", len(res.Calls),
	)
	return res, err
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
