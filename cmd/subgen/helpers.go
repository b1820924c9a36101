package main

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"subgen/internal/config"
	"subgen/internal/history"
	"subgen/internal/logging"
	"subgen/internal/services/stash"
	"subgen/internal/services/whisper"
)

func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
}

// buildWhisperClient constructs the inference client, letting an explicit
// URL override the configured one.
func buildWhisperClient(cfg *config.Config, serverURL string, logger *slog.Logger) *whisper.Client {
	url := strings.TrimSpace(serverURL)
	if url == "" {
		url = cfg.Whisper.ServerURL
	}
	return whisper.New(
		url,
		time.Duration(cfg.Whisper.RequestTimeout)*time.Second,
		time.Duration(cfg.Whisper.ProbeTimeout)*time.Second,
		logger,
	)
}

// buildStashClient constructs a host API client from the configuration.
func buildStashClient(cfg *config.Config, logger *slog.Logger) *stash.Client {
	opts := []stash.Option{
		stash.WithLogger(logger),
		stash.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Stash.RequestTimeout) * time.Second}),
	}
	if cfg.Stash.APIKey != "" {
		opts = append(opts, stash.WithAPIKey(cfg.Stash.APIKey))
	}
	return stash.NewClient(cfg.Stash.URL, opts...)
}

// openHistory opens the job history store. Failures degrade to no history
// recording rather than blocking transcription.
func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		logger.Warn("history store unavailable", "error", err)
		return nil
	}
	return store
}
