package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWhisper(); err != nil {
		return err
	}
	if err := c.validateStash(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateWhisper() error {
	if err := validateHTTPURL(c.Whisper.ServerURL); err != nil {
		return fmt.Errorf("whisper.server_url: %w", err)
	}
	if c.Whisper.RequestTimeout <= 0 {
		return errors.New("whisper.request_timeout must be positive")
	}
	if c.Whisper.ProbeTimeout <= 0 {
		return errors.New("whisper.probe_timeout must be positive")
	}
	return nil
}

func (c *Config) validateStash() error {
	if err := validateHTTPURL(c.Stash.URL); err != nil {
		return fmt.Errorf("stash.url: %w", err)
	}
	return nil
}

func (c *Config) validateWatch() error {
	for _, ext := range c.Watch.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("watch.extensions: invalid extension %q", ext)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "console", "json", "plugin":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
