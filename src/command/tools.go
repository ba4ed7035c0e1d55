package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/toolgate/gateway-client/src/session"
	"github.com/toolgate/gateway-client/src/tools"
)

func argFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "args", Aliases: []string{"a"}, Usage: "arguments as a JSON object"},
		&cli.StringSliceFlag{Name: "arg", Usage: "one argument as key=value (repeatable)"},
	}
}

// resolveArguments picks the call arguments: --args JSON, then --arg
// pairs, then the starter arguments known for the tool.
func resolveArguments(c *cli.Context, name string) (any, error) {
	if c.IsSet("args") && c.IsSet("arg") {
		return nil, errors.New("use either --args or --arg, not both")
	}
	if c.IsSet("args") {
		return tools.ParseArguments(c.String("args"))
	}
	if c.IsSet("arg") {
		return tools.ParseKeyValues(c.StringSlice("arg"))
	}
	return tools.DefaultArguments(name), nil
}

func toolName(c *cli.Context) (string, error) {
	name := strings.TrimSpace(c.Args().First())
	if name == "" {
		return "", fmt.Errorf("missing tool name; usage: %s %s", c.Command.HelpName, c.Command.ArgsUsage)
	}
	return name, nil
}

func toolsCommand(deps Deps) *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "tool discovery and manual calls",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "fetch and show the tool catalog",
				Action: func(c *cli.Context) error {
					return withRuntime(c, deps, func(ctx context.Context, rt *runtime) error {
						list, err := rt.session.FetchCatalog(ctx)
						if err != nil {
							return rt.fail(err)
						}
						return rt.out.Discovery(list)
					})
				},
			},
			{
				Name:      "search",
				Usage:     "rank catalog tools by name, domain, scopes and description",
				ArgsUsage: "QUERY...",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "maximum results (0 for all)", Value: 10},
				},
				Action: func(c *cli.Context) error {
					query := strings.Join(c.Args().Slice(), " ")
					if strings.TrimSpace(query) == "" {
						return errors.New("missing search query")
					}
					return withRuntime(c, deps, func(ctx context.Context, rt *runtime) error {
						if _, err := rt.session.FetchCatalog(ctx); err != nil {
							return rt.fail(err)
						}
						return rt.out.Discovery(rt.session.Catalog().Search(query, c.Int("limit")))
					})
				},
			},
			{
				Name:      "show",
				Usage:     "show one tool including its parameter schema",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					name, err := toolName(c)
					if err != nil {
						return err
					}
					return withRuntime(c, deps, func(ctx context.Context, rt *runtime) error {
						if _, err := rt.session.FetchCatalog(ctx); err != nil {
							return rt.fail(err)
						}
						t, ok := rt.session.Catalog().Lookup(name)
						if !ok {
							return rt.fail(fmt.Errorf("tool %q is not in the catalog", name))
						}
						return rt.out.Tool(t)
					})
				},
			},
			{
				Name:      "call",
				Usage:     "call a tool with JSON or key=value arguments",
				ArgsUsage: "NAME",
				Flags:     argFlags(),
				Action: func(c *cli.Context) error {
					name, err := toolName(c)
					if err != nil {
						return err
					}
					args, err := resolveArguments(c, name)
					if err != nil {
						return err
					}
					return withRuntime(c, deps, func(ctx context.Context, rt *runtime) error {
						res, err := rt.session.CallTool(ctx, name, args)
						if err != nil {
							return rt.fail(err)
						}
						if err := rt.out.CallResult(name, res); err != nil {
							return err
						}
						if !res.OK {
							return ErrReported
						}
						return nil
					})
				},
			},
		},
	}
}

func protocolFlag() cli.Flag {
	return &cli.StringFlag{Name: "protocol", Aliases: []string{"p"}, Usage: "rest or mcp", Value: string(session.TransportREST)}
}

func rawCommand(deps Deps) *cli.Command {
	return &cli.Command{
		Name:  "raw",
		Usage: "send a request and show the status code and body as received",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "raw catalog request",
				Flags: []cli.Flag{protocolFlag()},
				Action: func(c *cli.Context) error {
					transport, err := session.ParseTransport(c.String("protocol"))
					if err != nil {
						return err
					}
					return withRuntime(c, deps, func(ctx context.Context, rt *runtime) error {
						return runRaw(ctx, rt, transport, nil)
					})
				},
			},
			{
				Name:      "call",
				Usage:     "raw tool call",
				ArgsUsage: "NAME",
				Flags:     append(argFlags(), protocolFlag()),
				Action: func(c *cli.Context) error {
					transport, err := session.ParseTransport(c.String("protocol"))
					if err != nil {
						return err
					}
					name, err := toolName(c)
					if err != nil {
						return err
					}
					args, err := resolveArguments(c, name)
					if err != nil {
						return err
					}
					req := tools.NewCallRequest(name, args)
					return withRuntime(c, deps, func(ctx context.Context, rt *runtime) error {
						return runRaw(ctx, rt, transport, &req)
					})
				},
			},
		},
	}
}

func runRaw(ctx context.Context, rt *runtime, t session.Transport, req *tools.CallRequest) error {
	resp, err := rt.session.Raw(ctx, t, req)
	if err != nil {
		return rt.fail(err)
	}
	return rt.out.Raw(resp)
}
