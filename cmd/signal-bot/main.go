// Command signal-bot wires the runtime together and runs it: load config,
// construct a signalbot.Client, register commands, run until SIGINT/SIGTERM.
// Grounded on the teacher's cmd/server/main.go (construct adapters, wire,
// start, rely on the library for graceful shutdown).
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/cornellsh/signal-client/internal/config"
	"github.com/cornellsh/signal-client/pkg/signalbot"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	settings := config.Get()
	if settings.PhoneNumber == "" {
		logger.Error("signal-bot: phone_number is required (config.yaml or SIGNAL_PHONE_NUMBER)")
		os.Exit(1)
	}

	bot := signalbot.New(signalbot.Config{
		PhoneNumber: settings.PhoneNumber,
		BaseURL:     settings.BaseURL,
		Settings:    settings,
		Logger:      logger,
	})

	bot.Handle("!ping", func(ctx signalbot.Context) error {
		return ctx.Reply("pong")
	})

	if err := bot.Run(context.Background()); err != nil {
		logger.Error("signal-bot: exited with error", "error", err)
		os.Exit(1)
	}
}
