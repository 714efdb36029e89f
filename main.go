package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"courier/pkg/bridge"
	"courier/pkg/channels/telegram"
	"courier/pkg/config"
	"courier/pkg/mcpserver"
	"courier/pkg/monitor"
)

func main() {
	// --- 0. Configuration (defaults <- courier.json <- COURIER_* env) ---
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v\n", err)
	}

	monitor.SetupSlog(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- 1. Telegram transport ---
	transport, err := telegram.New(telegram.Config{
		Token:           cfg.TelegramToken,
		ChatID:          cfg.ChatID,
		MessageLimit:    cfg.TelegramMessageLimit,
		DownloadTimeout: cfg.DownloadTimeout(),
		ForceReply:      cfg.ForceReplyEnabled(),
	})
	if err != nil {
		log.Fatalf("Failed to init telegram transport: %v\n", err)
	}

	// The endpoint must be a reachable single-party conversation; anything
	// else is a misconfiguration the process must not start on.
	if err := transport.VerifyChat(ctx); err != nil {
		log.Fatalf("Chat verification failed: %v\n", err)
	}

	// --- 2. Bridge singletons ---
	policy := bridge.NewTimeoutPolicy(cfg.UrgentTimeout(), cfg.RelaxedTimeout())
	ledger := &bridge.Ledger{}
	cursor := &bridge.Cursor{}
	matcher := &bridge.Matcher{
		ChatID:    cfg.ChatID,
		SelfID:    transport.SelfID(),
		ClockSkew: cfg.ClockSkew(),
	}

	// --- 3. MCP server over stdio ---
	server := mcpserver.New(mcpserver.Dependencies{
		Transport:     transport,
		Ledger:        ledger,
		Cursor:        cursor,
		Matcher:       matcher,
		Policy:        policy,
		PollInterval:  cfg.PollInterval(),
		LongPollWait:  cfg.LongPollWait(),
		LivenessEvery: cfg.LivenessEvery(),
	}, cfg.FallbackReply)

	// --- 3a. Hot reload of the live tunables ---
	go func() {
		for range config.WatchConfig(ctx, config.DefaultPath) {
			fresh, err := config.Load(config.DefaultPath)
			if err != nil {
				slog.Warn("Config reload skipped", "error", err)
				continue
			}
			policy.Update(fresh.UrgentTimeout(), fresh.RelaxedTimeout())
			server.SetFallback(fresh.FallbackReply)
			slog.Info("Timeout policy reloaded",
				"urgent", fresh.UrgentTimeout(), "relaxed", fresh.RelaxedTimeout())
		}
	}()

	// --- 4. Signals ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, stopping")
		cancel()
		transport.Close()
	}()

	// Blocks until the MCP client disconnects or we are signaled.
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("MCP server exited: %v\n", err)
	}

	transport.Close()
	slog.Info("Bye!")
}
