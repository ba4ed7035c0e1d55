package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/toolgate/gateway-client/src/command"
)

var version = "dev"

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{Version: version})
	if err := app.RunContext(rootCtx, os.Args); err != nil {
		if !errors.Is(err, command.ErrReported) {
			fmt.Fprintln(os.Stderr, "gatewayctl:", err)
		}
		stop()
		os.Exit(1)
	}
}
