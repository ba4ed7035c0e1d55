// Package command wires configuration, the gateway session and the views
// into the gatewayctl command line.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/toolgate/gateway-client/src/adk"
	"github.com/toolgate/gateway-client/src/config"
	"github.com/toolgate/gateway-client/src/logging"
	"github.com/toolgate/gateway-client/src/session"
	gwhttp "github.com/toolgate/gateway-client/src/transports/http"
	"github.com/toolgate/gateway-client/src/views"
)

// ErrReported means the failure was already rendered to the user; callers
// only need to set a non-zero exit status.
var ErrReported = errors.New("command failed")

type Deps struct {
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	Version    string
	LoadConfig func(config.LoadOptions) (*config.Config, error)
	NewLLM     func(adk.ProviderConfig) (adk.LLM, error)
	HTTPClient gwhttp.HTTPDoer
}

func (d Deps) withDefaults() Deps {
	if d.Stdin == nil {
		d.Stdin = os.Stdin
	}
	if d.Stdout == nil {
		d.Stdout = os.Stdout
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	if d.LoadConfig == nil {
		d.LoadConfig = config.Load
	}
	if d.NewLLM == nil {
		d.NewLLM = adk.NewLLM
	}
	return d
}

func BuildApp(deps Deps) *cli.App {
	deps = deps.withDefaults()
	return &cli.App{
		Name:           "gatewayctl",
		Usage:          "discover and call tools on a tool gateway, directly or through an LLM agent",
		Version:        deps.Version,
		Reader:         deps.Stdin,
		Writer:         deps.Stdout,
		ErrWriter:      deps.Stderr,
		Flags:          globalFlags(),
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			toolsCommand(deps),
			rawCommand(deps),
			{
				Name:  "health",
				Usage: "probe the gateway health endpoint",
				Action: func(c *cli.Context) error {
					return withRuntime(c, deps, runHealth)
				},
			},
			{
				Name:  "headers",
				Usage: "show the headers sent with every request",
				Action: func(c *cli.Context) error {
					return withRuntime(c, deps, func(_ context.Context, rt *runtime) error {
						return rt.out.Headers(rt.session.Headers())
					})
				},
			},
			chatCommand(deps),
			{
				Name:  "shell",
				Usage: "interactive session: browse tools, call them and chat with the agent",
				Action: func(c *cli.Context) error {
					return withRuntime(c, deps, func(ctx context.Context, rt *runtime) error {
						return newShell(rt, deps.Stdin, deps.Stdout).Run(ctx)
					})
				},
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file (default: " + config.DefaultFile + " when present)"},
		&cli.StringFlag{Name: "env-file", Usage: "dotenv file with variables", Value: config.DefaultEnvFile},
		&cli.StringFlag{Name: "gateway-url", Aliases: []string{"u"}, Usage: "gateway URL, e.g. " + config.DefaultGatewayURL},
		&cli.DurationFlag{Name: "timeout", Usage: "per request timeout"},
		&cli.StringFlag{Name: "tenant", Usage: "x-tenant-id header"},
		&cli.StringFlag{Name: "actor", Usage: "x-actor-id header"},
		&cli.StringFlag{Name: "scopes", Usage: "x-scopes, comma or newline separated"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output format: text, json or yaml", Value: string(views.FormatText)},
		&cli.StringFlag{Name: "provider", Usage: "LLM provider: openai, gemini or ollama"},
		&cli.StringFlag{Name: "model", Usage: "LLM model name"},
		&cli.IntFlag{Name: "max-iterations", Usage: "model calls allowed per chat turn"},
		&cli.StringFlag{Name: "agent-protocol", Usage: "agent reply protocol: json or marker"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-format", Usage: "text, json or auto"},
	}
}

// applyFlags overlays explicitly set flags, the highest precedence source.
func applyFlags(c *cli.Context, cfg *config.Config) {
	str := map[string]*string{
		"gateway-url":    &cfg.GatewayURL,
		"tenant":         &cfg.TenantID,
		"actor":          &cfg.ActorID,
		"scopes":         &cfg.Scopes,
		"provider":       &cfg.LLM.Provider,
		"model":          &cfg.LLM.Model,
		"agent-protocol": &cfg.Agent.Protocol,
		"log-level":      &cfg.Log.Level,
		"log-format":     &cfg.Log.Format,
	}
	for name, dst := range str {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("max-iterations") {
		cfg.Agent.MaxIterations = c.Int("max-iterations")
	}
}

// runtime is everything one command invocation needs.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	manager  *session.Manager
	session  *session.Session
	modelErr error
	out      *views.Renderer
	// progress receives live agent events; stderr unless the shell owns
	// the terminal.
	progress *views.Renderer
}

func newRuntime(c *cli.Context, deps Deps) (*runtime, error) {
	cfg, err := deps.LoadConfig(config.LoadOptions{
		File:    c.String("config"),
		EnvFile: c.String("env-file"),
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(deps.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	format, err := views.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:      cfg,
		logger:   logger,
		out:      views.New(deps.Stdout, format),
		progress: views.New(deps.Stderr, views.FormatText),
	}

	llm, err := deps.NewLLM(cfg.ProviderConfig())
	if err != nil {
		// Keep the reason; every chat turn reports it.
		logger.Debug("language model unavailable", "error", err)
		rt.modelErr = err
		llmErr := err
		llm = adk.LLMFunc(func(context.Context, []adk.Message) (string, error) {
			return "", llmErr
		})
	}
	protocol, _ := adk.ProtocolByName(cfg.Agent.Protocol)
	agent := adk.NewLLMAgent(llm,
		adk.WithMaxIterations(cfg.Agent.MaxIterations),
		adk.WithProtocol(protocol),
		adk.WithLogger(logger),
		adk.WithObserver(func(ev adk.Event) {
			if rt.out.Format() == views.FormatText {
				rt.progress.Event(ev)
			}
		}),
	)

	rt.manager = session.NewManager(session.Options{
		GatewayURL: cfg.GatewayURL,
		Timeout:    cfg.Timeout,
		Fields:     cfg.HeaderFields(),
		HTTPClient: deps.HTTPClient,
		Agent:      agent,
		Logger:     logger,
	})
	rt.session = rt.manager.Start(nil)
	return rt, nil
}

func withRuntime(c *cli.Context, deps Deps, fn func(context.Context, *runtime) error) error {
	rt, err := newRuntime(c, deps)
	if err != nil {
		return err
	}
	defer rt.close()
	return fn(c.Context, rt)
}

// close ends the session, dropping its catalog and history.
func (rt *runtime) close() {
	if rt.manager.End(rt.session.ID()) {
		rt.logger.Debug("session ended", "duration", time.Since(rt.session.StartedAt()))
	}
}

func (rt *runtime) status() views.SessionStatus {
	s := rt.session
	st := views.SessionStatus{
		ID:            s.ID(),
		StartedAt:     s.StartedAt(),
		GatewayURL:    s.GatewayURL(),
		BaseURL:       s.BaseURL(),
		MCPEndpoint:   s.MCPEndpoint(),
		Tools:         s.Catalog().Len(),
		Messages:      s.Conversation().Len(),
		Model:         rt.cfg.LLM.Provider,
		Protocol:      s.Agent().Protocol().Name(),
		MaxIterations: s.Agent().MaxIterations(),
	}
	if rt.cfg.LLM.Model != "" {
		st.Model += "/" + rt.cfg.LLM.Model
	}
	if s.Catalog().Populated() {
		fetched := s.Catalog().UpdatedAt()
		st.CatalogFetchedAt = &fetched
	}
	if rt.modelErr != nil {
		st.ModelError = rt.modelErr.Error()
	}
	return st
}

// fail renders err and returns ErrReported.
func (rt *runtime) fail(err error) error {
	if renderErr := rt.out.Failure(err); renderErr != nil {
		return renderErr
	}
	return ErrReported
}

func runHealth(ctx context.Context, rt *runtime) error {
	status, err := rt.session.Health(ctx)
	if err != nil {
		return rt.fail(err)
	}
	return rt.out.Health(rt.session.BaseURL(), status)
}
