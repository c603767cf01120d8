package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/omochice/ng-bridge/internal/testserver"
)

func main() {
	addr := pflag.String("addr", "127.0.0.1:1453", "Address to listen on for WebSocket clients")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	srv := testserver.New(*addr)
	if err := srv.Start(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	defer srv.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("lobby server started", "url", srv.URL())

	if err := testserver.NewLobby(logger).Serve(ctx, srv); err != nil {
		logger.Error("lobby stopped", "error", err)
	}

	logger.Info("lobby server stopped")
}
