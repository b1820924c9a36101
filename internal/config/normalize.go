package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWhisper()
	c.normalizeStash()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WatchDir) != "" {
		if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
			return fmt.Errorf("paths.watch_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeWhisper() {
	c.Whisper.ServerURL = strings.TrimSpace(c.Whisper.ServerURL)
	if c.Whisper.ServerURL == "" {
		c.Whisper.ServerURL = defaultServerURL
	}
	// The environment variable beats the file-configured endpoint. Explicit
	// task arguments and host plugin settings are layered on by callers.
	if value, ok := os.LookupEnv(EnvServerURL); ok && strings.TrimSpace(value) != "" {
		c.Whisper.ServerURL = strings.TrimSpace(value)
	}
	if c.Whisper.RequestTimeout <= 0 {
		c.Whisper.RequestTimeout = defaultRequestTimeout
	}
	if c.Whisper.ProbeTimeout <= 0 {
		c.Whisper.ProbeTimeout = defaultProbeTimeout
	}
	c.Whisper.FFmpegBinary = strings.TrimSpace(c.Whisper.FFmpegBinary)
	if c.Whisper.FFmpegBinary == "" {
		c.Whisper.FFmpegBinary = defaultFFmpegBinary
	}
	c.Whisper.FFprobeBinary = strings.TrimSpace(c.Whisper.FFprobeBinary)
	if c.Whisper.FFprobeBinary == "" {
		c.Whisper.FFprobeBinary = defaultFFprobeBinary
	}
	c.Whisper.Language = strings.TrimSpace(c.Whisper.Language)
}

func (c *Config) normalizeStash() {
	c.Stash.URL = strings.TrimRight(strings.TrimSpace(c.Stash.URL), "/")
	if c.Stash.URL == "" {
		c.Stash.URL = defaultStashURL
	}
	if c.Stash.APIKey == "" {
		if value, ok := os.LookupEnv("STASH_API_KEY"); ok {
			c.Stash.APIKey = value
		}
	}
	if c.Stash.RequestTimeout <= 0 {
		c.Stash.RequestTimeout = defaultStashTimeout
	}
}

func (c *Config) normalizeWatch() {
	if len(c.Watch.Extensions) == 0 {
		c.Watch.Extensions = defaultWatchExtensions()
	}
	normalized := make([]string, 0, len(c.Watch.Extensions))
	for _, ext := range c.Watch.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.Watch.Extensions = normalized
	if c.Watch.SettleSeconds <= 0 {
		c.Watch.SettleSeconds = defaultWatchSettle
	}
	if c.Watch.MaxConcurrent <= 0 {
		c.Watch.MaxConcurrent = defaultWatchConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}
