package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/omochice/ng-bridge/internal/bridge"
	"github.com/omochice/ng-bridge/internal/config"
	"github.com/omochice/ng-bridge/internal/host"
	"github.com/omochice/ng-bridge/internal/transport/ws"
)

func main() {
	fs := pflag.NewFlagSet("ngclient", pflag.ExitOnError)
	configPath := fs.String("config", "", "Directory containing ngclient.yaml")
	name := fs.String("name", "", "Player name used to log in")
	logEvents := fs.Bool("log-events", false, "Log events instead of printing JSON lines")
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	if *name == "" {
		logger.Error("Name is required. Use --name flag")
		os.Exit(1)
	}

	if err := run(cfg, *name, *logEvents, logger); err != nil {
		logger.Error("client stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, name string, logEvents bool, logger *slog.Logger) error {
	overflow, err := bridge.ParseOverflow(cfg.Overflow)
	if err != nil {
		return err
	}

	var notifier bridge.Notifier = host.NewJSONLinesNotifier(os.Stdout, logger)
	if logEvents {
		notifier = host.NewLogNotifier(logger)
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conn, err := ws.Dial(dialCtx, cfg.ServerURL)
	cancel()
	if err != nil {
		return err
	}

	rd, wr := conn.Split()
	b := bridge.New(rd, wr, bridge.NewQueues(cfg.OutboundCapacity, cfg.InboundCapacity), notifier,
		bridge.WithLogger(logger),
		bridge.WithOverflow(overflow),
		bridge.WithCloser(conn),
	)
	b.Start()
	defer b.Close()

	logger.Info("connected", "server", cfg.ServerURL, "remote", conn.RemoteAddr(), "session", b.ID())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			b.Close()
		case <-b.Done():
		}
	}()

	if err := b.Login(name); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	logger.Info("logged in", "name", name)

	go func() {
		if err := b.Flush(); err != nil {
			logger.Error("flush loop stopped", "error", err)
		}
	}()

	go readCommands(b, logger)

	<-b.Done()
	if err := b.Err(); err != nil {
		return err
	}
	logger.Info("disconnected from server")
	return nil
}

// readCommands submits one action per stdin line until quit or EOF.
func readCommands(b *bridge.Bridge, logger *slog.Logger) {
	defer b.Close()

	fmt.Fprintln(os.Stderr, host.Usage)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		action, err := host.ParseCommand(scanner.Text())
		switch {
		case errors.Is(err, host.ErrEmptyCommand):
			continue
		case errors.Is(err, host.ErrQuit):
			return
		case err != nil:
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		if err := b.Submit(action); err != nil {
			logger.Error("failed to send action", "kind", action.Kind(), "error", err)
			return
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Error("error reading input", "error", err)
	}
}
