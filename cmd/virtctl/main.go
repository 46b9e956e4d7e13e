package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/walteh/libvirt-mcp/cmd/virtctl/commands"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctx = logger.WithContext(ctx)

	if err := commands.RootCmd().ExecuteContext(ctx); err != nil {
		logger.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
