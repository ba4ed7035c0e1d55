package adk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/toolgate/gateway-client/src/json"
)

// HTTPDoer is implemented by *http.Client. It allows provider clients to be
// configured with custom transports while remaining testable.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ErrModelUnavailable means no usable language model is configured, usually
// because the provider credential is missing.
var ErrModelUnavailable = errors.New("language model is not configured")

// Provider names accepted by NewLLM.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// DefaultLLMTimeout bounds one model request made by a client from NewLLM
// when no HTTPClient is given.
const DefaultLLMTimeout = 2 * time.Minute

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-1.5-flash",
	ProviderOllama: "llama3.1",
}

// ProviderConfig selects and configures a model provider.
type ProviderConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	HTTPClient HTTPDoer
}

// NewLLM builds the configured provider client. A missing credential or an
// unknown provider yields an error wrapping ErrModelUnavailable.
func NewLLM(cfg ProviderConfig) (LLM, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderOpenAI
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModels[provider]
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultLLMTimeout}
	}

	switch provider {
	case ProviderOpenAI:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("%w: missing OpenAI API key", ErrModelUnavailable)
		}
		return NewOpenAIClient(cfg.APIKey, model, WithOpenAIHTTPClient(cfg.HTTPClient), WithOpenAIBaseURL(cfg.BaseURL)), nil
	case ProviderGemini:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("%w: missing Gemini API key", ErrModelUnavailable)
		}
		return NewGeminiClient(cfg.APIKey, model, WithGeminiHTTPClient(cfg.HTTPClient), WithGeminiBaseURL(cfg.BaseURL)), nil
	case ProviderOllama:
		return NewOllamaClient(model, WithOllamaHTTPClient(cfg.HTTPClient), WithOllamaBaseURL(cfg.BaseURL)), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrModelUnavailable, cfg.Provider)
	}
}

func postJSON(ctx context.Context, client HTTPDoer, endpoint string, payload any, hdr map[string]string, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// --- OpenAI -----------------------------------------------------------------

type openAIConfig struct {
	httpClient HTTPDoer
	baseURL    string
}

// OpenAIOption configures a new OpenAIClient instance.
type OpenAIOption func(*openAIConfig)

// WithOpenAIHTTPClient overrides the HTTP client used to communicate with the
// OpenAI API.
func WithOpenAIHTTPClient(client HTTPDoer) OpenAIOption {
	return func(cfg *openAIConfig) {
		cfg.httpClient = client
	}
}

// WithOpenAIBaseURL sets a custom chat completions URL, for OpenAI
// compatible servers and tests.
func WithOpenAIBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openAIConfig) {
		if strings.TrimSpace(baseURL) != "" {
			cfg.baseURL = baseURL
		}
	}
}

// OpenAIClient implements the LLM interface using OpenAI's Chat Completions
// endpoint.
type OpenAIClient struct {
	httpClient HTTPDoer
	apiKey     string
	model      string
	baseURL    string
}

// NewOpenAIClient constructs a client capable of invoking OpenAI chat models.
func NewOpenAIClient(apiKey, model string, opts ...OpenAIOption) *OpenAIClient {
	if strings.TrimSpace(apiKey) == "" {
		panic("openai api key must not be empty")
	}
	if strings.TrimSpace(model) == "" {
		panic("openai model must not be empty")
	}

	cfg := &openAIConfig{
		httpClient: http.DefaultClient,
		baseURL:    "https://api.openai.com/v1/chat/completions",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = http.DefaultClient
	}

	return &OpenAIClient{
		httpClient: cfg.httpClient,
		apiKey:     apiKey,
		model:      model,
		baseURL:    cfg.baseURL,
	}
}

// Chat issues a chat completion request with the full message list.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	payload := map[string]any{
		"model":    c.model,
		"messages": messages,
	}
	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	hdr := map[string]string{"Authorization": "Bearer " + c.apiKey}
	if err := postJSON(ctx, c.httpClient, c.baseURL, payload, hdr, &decoded); err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openai response missing choices")
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// --- Gemini -----------------------------------------------------------------

type geminiConfig struct {
	httpClient HTTPDoer
	baseURL    string
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*geminiConfig)

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(client HTTPDoer) GeminiOption {
	return func(cfg *geminiConfig) {
		cfg.httpClient = client
	}
}

// WithGeminiBaseURL overrides the base API URL, useful for tests.
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(cfg *geminiConfig) {
		if strings.TrimSpace(baseURL) != "" {
			cfg.baseURL = baseURL
		}
	}
}

// GeminiClient talks to the Google Gemini API.
type GeminiClient struct {
	httpClient HTTPDoer
	apiKey     string
	model      string
	baseURL    string
}

// NewGeminiClient constructs a Gemini backed LLM implementation.
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) *GeminiClient {
	if strings.TrimSpace(apiKey) == "" {
		panic("gemini api key must not be empty")
	}
	if strings.TrimSpace(model) == "" {
		panic("gemini model must not be empty")
	}

	cfg := &geminiConfig{
		httpClient: http.DefaultClient,
		baseURL:    "https://generativelanguage.googleapis.com",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = http.DefaultClient
	}

	return &GeminiClient{
		httpClient: cfg.httpClient,
		apiKey:     apiKey,
		model:      model,
		baseURL:    cfg.baseURL,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// Chat requests a completion from the Gemini API. System messages become
// the system instruction; assistant turns use Gemini's "model" role.
func (c *GeminiClient) Chat(ctx context.Context, messages []Message) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	base.Path = path.Join(base.Path, "v1beta", "models", c.model+":generateContent")
	q := base.Query()
	q.Set("key", c.apiKey)
	base.RawQuery = q.Encode()

	var system []geminiPart
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, geminiPart{Text: m.Content})
		case RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	payload := map[string]any{"contents": contents}
	if len(system) > 0 {
		payload["systemInstruction"] = geminiContent{Parts: system}
	}

	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := postJSON(ctx, c.httpClient, base.String(), payload, nil, &decoded); err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini response missing candidates")
	}
	return strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text), nil
}

// --- Ollama -----------------------------------------------------------------

type ollamaConfig struct {
	httpClient HTTPDoer
	baseURL    string
}

// OllamaOption configures an OllamaClient.
type OllamaOption func(*ollamaConfig)

// WithOllamaHTTPClient overrides the HTTP client used to communicate with the
// Ollama daemon.
func WithOllamaHTTPClient(client HTTPDoer) OllamaOption {
	return func(cfg *ollamaConfig) {
		cfg.httpClient = client
	}
}

// WithOllamaBaseURL changes the API endpoint.
func WithOllamaBaseURL(baseURL string) OllamaOption {
	return func(cfg *ollamaConfig) {
		if strings.TrimSpace(baseURL) != "" {
			cfg.baseURL = baseURL
		}
	}
}

// OllamaClient issues requests to a running Ollama instance.
type OllamaClient struct {
	httpClient HTTPDoer
	model      string
	baseURL    string
}

// NewOllamaClient returns an LLM implementation powered by Ollama.
func NewOllamaClient(model string, opts ...OllamaOption) *OllamaClient {
	if strings.TrimSpace(model) == "" {
		panic("ollama model must not be empty")
	}

	cfg := &ollamaConfig{
		httpClient: http.DefaultClient,
		baseURL:    "http://localhost:11434/api/chat",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = http.DefaultClient
	}

	return &OllamaClient{
		httpClient: cfg.httpClient,
		model:      model,
		baseURL:    cfg.baseURL,
	}
}

// Chat requests a non-streaming chat completion from Ollama.
func (c *OllamaClient) Chat(ctx context.Context, messages []Message) (string, error) {
	payload := map[string]any{
		"model":    c.model,
		"messages": messages,
		"stream":   false,
	}
	var decoded struct {
		Message Message `json:"message"`
	}
	if err := postJSON(ctx, c.httpClient, c.baseURL, payload, nil, &decoded); err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	return strings.TrimSpace(decoded.Message.Content), nil
}
