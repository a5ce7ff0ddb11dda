package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"mcp-calculator-go/internal/calculator"
	"mcp-calculator-go/internal/client"
)

type scenario struct {
	label string
	req   calculator.Request
}

func main() {
	defaultURL := os.Getenv("MCP_SERVER_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:3000"
	}
	url := flag.String("url", defaultURL, "base URL of the MCP server")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().
		Timestamp().
		Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := client.New(*url)

	manifest, err := c.Manifest(ctx)
	if err != nil {
		logger.Fatal().Err(err).Str("url", *url).Msg("Failed to fetch manifest")
	}
	for _, tool := range manifest.Tools {
		logger.Info().
			Str("tool", tool.Name).
			Str("description", tool.Description).
			RawJSON("parameters", tool.Parameters).
			Msg("Available tool")
	}

	scenarios := []scenario{
		{"5 + 3", calculator.Request{Operation: calculator.Add, A: 5, B: 3}},
		{"10 / 2", calculator.Request{Operation: calculator.Divide, A: 10, B: 2}},
		{"10 / 0", calculator.Request{Operation: calculator.Divide, A: 10, B: 0}},
	}

	failed := 0
	for _, s := range scenarios {
		resp, err := c.Invoke(ctx, calculator.Name, s.req)
		if err != nil {
			failed++
			logger.Warn().Err(err).Str("expression", s.label).Msg("Calculation failed")
			continue
		}
		logger.Info().
			Str("expression", s.label).
			RawJSON("response", mustJSON(resp)).
			Msg("Calculation succeeded")
	}

	logger.Info().
		Int("scenarios", len(scenarios)).
		Int("failed", failed).
		Msg("Test client finished")
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`null`)
	}
	return data
}
