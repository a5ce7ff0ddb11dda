package main

import (
	"context"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"mcp-calculator-go/internal/server"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := server.LoadConfigFromEnv()
	if err != nil {
		fallback := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
		fallback.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger, err := server.NewLogger(cfg, os.Stderr)
	if err != nil {
		fallback := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
		fallback.Fatal().Err(err).Msg("Failed to configure logger")
	}

	logger.Info().
		Str("version", server.Version).
		Str("log_level", cfg.LogLevel).
		Dur("session_timeout", cfg.SessionTimeout).
		Msg("Starting MCP calculator server")

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create server")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mcp-server": func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info().Int("exit_code", exitCode).Msg("Server exited")
	cancel()
	os.Exit(exitCode)
}
