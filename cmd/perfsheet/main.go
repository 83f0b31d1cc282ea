package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/CoePress/coesco-web/cmd/perfsheet/commands"
)

// Version information (set via ldflags during build)
var Version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := commands.Execute(ctx, Version); err != nil {
		os.Exit(1)
	}
}
