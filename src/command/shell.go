package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/toolgate/gateway-client/src/headers"
	"github.com/toolgate/gateway-client/src/logging"
	"github.com/toolgate/gateway-client/src/session"
	"github.com/toolgate/gateway-client/src/tools"
	"github.com/toolgate/gateway-client/src/views"
)

const shellHelp = `Commands:
  /tools [refresh]            show the cached catalog (refresh fetches it again)
  /tool NAME                  show one tool with its parameters
  /search QUERY               rank cached tools against QUERY
  /call NAME [JSON|k=v ...]   call a tool; without arguments the starter arguments are used
  /raw list [mcp]             raw catalog request over rest (default) or mcp
  /raw call NAME [JSON] [mcp] raw tool call
  /headers                    show the request headers
  /set tenant|actor|scopes V  change a header field (empty V clears it)
  /health                     probe the gateway
  /session                    show the session, catalog and agent settings
  /history                    show the conversation
  /clear                      clear the conversation
  /clear-tools                clear the cached catalog
  /help                       show this help
  /quit                       leave
Anything else is sent to the agent.`

type shell struct {
	rt     *runtime
	in     io.Reader
	out    io.Writer
	prompt bool
}

func newShell(rt *runtime, in io.Reader, out io.Writer) *shell {
	// Live agent progress goes to the shell's own output.
	rt.progress = views.New(out, views.FormatText)
	return &shell{rt: rt, in: in, out: out, prompt: logging.IsTerminal(out)}
}

// Run reads commands until /quit, end of input or ctx is cancelled.
func (s *shell) Run(ctx context.Context) error {
	// Cancelled on return so the reader stops after /quit.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := readLines(ctx, s.in)

	fmt.Fprintf(s.out, "Connected to %s (session %s). Type /help for commands.\n", s.rt.session.BaseURL(), s.rt.session.ID())
	if _, err := s.rt.session.FetchCatalog(ctx); err != nil {
		_ = s.rt.out.Failure(err)
	} else {
		fmt.Fprintf(s.out, "%d tools available.\n", s.rt.session.Catalog().Len())
	}

	for {
		if s.prompt {
			fmt.Fprint(s.out, "> ")
		}
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		quit, err := s.dispatch(ctx, line)
		if err != nil && !errors.Is(err, ErrReported) {
			_ = s.rt.out.Failure(err)
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

// readLines feeds the lines of r to the returned channel. The channel is
// closed at end of input or once ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func (s *shell) dispatch(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, runChat(ctx, s.rt, line)
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	sess := s.rt.session

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		_, err := fmt.Fprintln(s.out, shellHelp)
		return false, err
	case "/tools":
		if rest == "refresh" || !sess.Catalog().Populated() {
			if _, err := sess.FetchCatalog(ctx); err != nil {
				return false, s.rt.fail(err)
			}
		}
		return false, s.rt.out.Discovery(sess.Catalog().Get())
	case "/search":
		if rest == "" {
			return false, errors.New("usage: /search QUERY")
		}
		return false, s.rt.out.Discovery(sess.Catalog().Search(rest, 0))
	case "/tool":
		t, ok := sess.Catalog().Lookup(rest)
		if !ok {
			if names := sess.Catalog().Names(); len(names) > 0 {
				return false, fmt.Errorf("tool %q is not in the catalog; known tools: %s", rest, strings.Join(names, ", "))
			}
			return false, fmt.Errorf("tool %q is not in the catalog; try /tools refresh", rest)
		}
		return false, s.rt.out.Tool(t)
	case "/call":
		name, argText, _ := strings.Cut(rest, " ")
		if name == "" {
			return false, errors.New("usage: /call NAME [JSON|k=v ...]")
		}
		args, err := parseShellArguments(name, argText)
		if err != nil {
			return false, err
		}
		res, err := sess.CallTool(ctx, name, args)
		if err != nil {
			return false, s.rt.fail(err)
		}
		return false, s.rt.out.CallResult(name, res)
	case "/raw":
		return false, s.raw(ctx, rest)
	case "/headers":
		return false, s.rt.out.Headers(sess.Headers())
	case "/set":
		return false, s.set(rest)
	case "/health":
		return false, runHealth(ctx, s.rt)
	case "/session":
		return false, s.rt.out.Session(s.rt.status())
	case "/history":
		return false, s.rt.out.History(sess.Conversation().Messages())
	case "/clear":
		sess.Clear()
		_, err := fmt.Fprintln(s.out, "Conversation cleared.")
		return false, err
	case "/clear-tools":
		sess.ClearCatalog()
		_, err := fmt.Fprintln(s.out, "Catalog cleared.")
		return false, err
	default:
		return false, fmt.Errorf("unknown command %s; type /help", cmd)
	}
}

func (s *shell) raw(ctx context.Context, rest string) error {
	transport := session.TransportREST
	last := rest
	if i := strings.LastIndexByte(rest, ' '); i >= 0 {
		last = rest[i+1:]
	}
	if t := session.Transport(last); t == session.TransportMCP || t == session.TransportREST {
		transport = t
		rest = strings.TrimSpace(strings.TrimSuffix(rest, last))
	}
	sub, rest, _ := strings.Cut(rest, " ")
	switch sub {
	case "", "list":
		return runRaw(ctx, s.rt, transport, nil)
	case "call":
		name, argText, _ := strings.Cut(strings.TrimSpace(rest), " ")
		if name == "" {
			return errors.New("usage: /raw call NAME [JSON] [mcp]")
		}
		args, err := parseShellArguments(name, argText)
		if err != nil {
			return err
		}
		req := tools.NewCallRequest(name, args)
		return runRaw(ctx, s.rt, transport, &req)
	default:
		return fmt.Errorf("unknown raw request %q; use list or call", sub)
	}
}

func (s *shell) set(rest string) error {
	field, value, _ := strings.Cut(rest, " ")
	value = strings.TrimSpace(value)
	f := s.rt.session.Fields()
	switch field {
	case "tenant":
		f.TenantID = value
	case "actor":
		f.ActorID = value
	case "scopes":
		f.Scopes = value
	default:
		return errors.New("usage: /set tenant|actor|scopes VALUE")
	}
	s.rt.session.SetFields(f)
	return s.rt.out.Headers(headers.Build(f))
}

// parseShellArguments accepts a JSON document, key=value pairs, or nothing
// for the tool's starter arguments.
func parseShellArguments(name, text string) (any, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return tools.DefaultArguments(name), nil
	case strings.HasPrefix(text, "{") || strings.HasPrefix(text, "["):
		return tools.ParseArguments(text)
	default:
		return tools.ParseKeyValues(strings.Fields(text))
	}
}
