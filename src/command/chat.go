package command

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/urfave/cli/v2"
)

func chatCommand(deps Deps) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "ask the agent one question; it may call gateway tools to answer",
		ArgsUsage: "[MESSAGE...]",
		Description: "Without MESSAGE the question is read from standard input. The tool catalog is\n" +
			"fetched first so the model knows which tools exist.",
		Action: func(c *cli.Context) error {
			text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if text == "" {
				b, err := io.ReadAll(deps.Stdin)
				if err != nil {
					return err
				}
				text = strings.TrimSpace(string(b))
			}
			if text == "" {
				return errors.New("no message given")
			}
			return withRuntime(c, deps, func(ctx context.Context, rt *runtime) error {
				return runChat(ctx, rt, text)
			})
		},
	}
}

func runChat(ctx context.Context, rt *runtime, text string) error {
	if _, err := rt.session.FetchCatalog(ctx); err != nil {
		// The agent can still answer without tools.
		rt.logger.Warn("catalog unavailable for chat", "error", err)
		_ = rt.progress.Failure(err)
	}
	res, err := rt.session.SendTurn(ctx, text)
	if renderErr := rt.out.Answer(res); renderErr != nil {
		return renderErr
	}
	if err != nil {
		return ErrReported
	}
	return nil
}
