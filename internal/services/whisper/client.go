package whisper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"subgen/internal/config"
	"subgen/internal/logging"
	"subgen/internal/services"
)

// HTTPDoer describes the HTTP client used by the inference client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options captures one transcription request.
type Options struct {
	// Translate requests an English translation instead of a
	// source-language transcript.
	Translate bool
	// Language is an optional ISO 639-1 hint passed to the server.
	Language string
}

// Client sends audio to the inference endpoint.
type Client struct {
	serverURL    string
	probeTimeout time.Duration
	client       HTTPDoer
	logger       *slog.Logger
}

// New constructs an inference client for the given endpoint URL.
func New(serverURL string, requestTimeout, probeTimeout time.Duration, logger *slog.Logger) *Client {
	if requestTimeout <= 0 {
		requestTimeout = time.Hour
	}
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Client{
		serverURL:    strings.TrimSpace(serverURL),
		probeTimeout: probeTimeout,
		client:       &http.Client{Timeout: requestTimeout},
		logger:       logging.NewComponentLogger(logger, "whisper"),
	}
}

// WithHTTPClient replaces the underlying HTTP client (for testing).
func (c *Client) WithHTTPClient(doer HTTPDoer) *Client {
	if doer != nil {
		c.client = doer
	}
	return c
}

// ServerURL returns the endpoint this client talks to.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// Ping verifies the inference server is reachable. Any HTTP response,
// including 4xx/5xx, counts as reachable; only transport failures do not.
func (c *Client) Ping(ctx context.Context) error {
	if c.serverURL == "" {
		return services.Wrap(services.ErrConfiguration, "whisper", "ping", "server url not configured", nil)
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodOptions, c.serverURL, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "whisper", "ping", "build probe request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrUnreachable, "whisper", "ping",
			fmt.Sprintf("cannot reach inference server at %s; configure the serverUrl setting or set %s",
				c.serverURL, config.EnvServerURL), err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
	return nil
}

// Transcribe uploads the WAV at audioPath and returns the SRT response body.
func (c *Client) Transcribe(ctx context.Context, audioPath string, opts Options) (string, error) {
	if c.serverURL == "" {
		return "", services.Wrap(services.ErrConfiguration, "whisper", "transcribe", "server url not configured", nil)
	}

	audio, err := os.Open(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "whisper", "transcribe", "open audio", err)
	}
	defer audio.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("response_format", "srt"); err != nil {
		return "", services.Wrap(services.ErrInference, "whisper", "transcribe", "encode form", err)
	}
	if opts.Translate {
		if err := writer.WriteField("translate", "true"); err != nil {
			return "", services.Wrap(services.ErrInference, "whisper", "transcribe", "encode form", err)
		}
	}
	if lang := strings.TrimSpace(opts.Language); lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return "", services.Wrap(services.ErrInference, "whisper", "transcribe", "encode form", err)
		}
	}
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", services.Wrap(services.ErrInference, "whisper", "transcribe", "encode form", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "whisper", "transcribe", "read audio", err)
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrInference, "whisper", "transcribe", "finalize form", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL, &body)
	if err != nil {
		return "", services.Wrap(services.ErrInference, "whisper", "transcribe", "build request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.logger.Debug("sending audio to inference server",
		slog.String("endpoint", c.serverURL),
		slog.Bool("translate", opts.Translate))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrInference, "whisper", "transcribe",
			fmt.Sprintf("request to %s failed; is the server running and reachable", c.serverURL), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", services.Wrap(services.ErrInference, "whisper", "transcribe", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrInference, "whisper", "transcribe",
			fmt.Sprintf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	return string(payload), nil
}
