package stash

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"subgen/internal/logging"
	"subgen/internal/services"
)

// HTTPDoer describes the HTTP client used by the host API client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SceneFile is one file attached to a scene.
type SceneFile struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Scene is the subset of the host scene record the plugin needs.
type Scene struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	UpdatedAt string      `json:"updated_at"`
	Files     []SceneFile `json:"files"`
}

// PrimaryPath returns the path of the scene's first file, or empty.
func (s *Scene) PrimaryPath() string {
	if s == nil || len(s.Files) == 0 {
		return ""
	}
	return s.Files[0].Path
}

// NumericID parses the GraphQL ID into an int64, returning zero when the
// host sent something unparseable.
func (s *Scene) NumericID() int64 {
	if s == nil {
		return 0
	}
	id, err := strconv.ParseInt(s.ID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Cookie is an optional session cookie sent with every request.
type Cookie struct {
	Name  string
	Value string
}

// Client talks to the host GraphQL endpoint.
type Client struct {
	endpoint string
	apiKey   string
	cookie   Cookie
	client   HTTPDoer
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey attaches the host API key to every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithSessionCookie attaches the host session cookie to every request.
func WithSessionCookie(name, value string) Option {
	return func(c *Client) { c.cookie = Cookie{Name: name, Value: value} }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithLogger attaches a logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "stash")
		}
	}
}

// NewClient constructs a host API client for the given GraphQL endpoint.
// A base URL without the /graphql suffix is accepted.
func NewClient(endpoint string, opts ...Option) *Client {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint != "" && !strings.HasSuffix(endpoint, "/graphql") {
		endpoint += "/graphql"
	}
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 60 * time.Second},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.endpoint == "" {
		return services.Wrap(services.ErrConfiguration, "stash", "query", "graphql endpoint not configured", nil)
	}

	payload, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return services.Wrap(services.ErrHostAPI, "stash", "query", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrHostAPI, "stash", "query", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("ApiKey", c.apiKey)
	}
	if c.cookie.Name != "" && c.cookie.Value != "" {
		req.AddCookie(&http.Cookie{Name: c.cookie.Name, Value: c.cookie.Value})
	}

	c.logger.Debug("graphql request", slog.String("endpoint", c.endpoint))

	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrHostAPI, "stash", "query", fmt.Sprintf("call %s", c.endpoint), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return services.Wrap(services.ErrHostAPI, "stash", "query", "read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return services.Wrap(services.ErrHostAPI, "stash", "query",
			fmt.Sprintf("endpoint returned %d: %s", resp.StatusCode, truncate(body, 200)), nil)
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return services.Wrap(services.ErrHostAPI, "stash", "query", "decode response", err)
	}
	if len(envelope.Errors) > 0 {
		return services.Wrap(services.ErrHostAPI, "stash", "query", envelope.Errors[0].Message, nil)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return services.Wrap(services.ErrHostAPI, "stash", "query", "decode data", err)
		}
	}
	return nil
}

const findSceneQuery = `query FindScene($id: ID!) {
  findScene(id: $id) {
    id
    title
    updated_at
    files { id path }
  }
}`

// FindScene resolves a scene id to its record, including file paths.
func (c *Client) FindScene(ctx context.Context, id int64) (*Scene, error) {
	var data struct {
		FindScene *Scene `json:"findScene"`
	}
	if err := c.query(ctx, findSceneQuery, map[string]any{"id": strconv.FormatInt(id, 10)}, &data); err != nil {
		return nil, err
	}
	if data.FindScene == nil {
		return nil, services.Wrap(services.ErrNotFound, "stash", "find scene", fmt.Sprintf("scene %d not found", id), nil)
	}
	return data.FindScene, nil
}

const allScenesQuery = `query AllScenes {
  allScenes { id updated_at }
}`

// LatestScene returns the most recently updated scene.
func (c *Client) LatestScene(ctx context.Context) (*Scene, error) {
	var data struct {
		AllScenes []Scene `json:"allScenes"`
	}
	if err := c.query(ctx, allScenesQuery, nil, &data); err != nil {
		return nil, err
	}
	if len(data.AllScenes) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "stash", "latest scene", "no scenes found", nil)
	}
	latest := data.AllScenes[0]
	for _, scene := range data.AllScenes[1:] {
		if scene.UpdatedAt > latest.UpdatedAt {
			latest = scene
		}
	}
	id, err := strconv.ParseInt(latest.ID, 10, 64)
	if err != nil {
		return nil, services.Wrap(services.ErrHostAPI, "stash", "latest scene", fmt.Sprintf("bad scene id %q", latest.ID), nil)
	}
	return c.FindScene(ctx, id)
}

const pluginConfigQuery = `query PluginConfiguration($ids: [ID!]) {
  configuration {
    plugins(include: $ids)
  }
}`

// PluginSetting reads one saved setting for any of the given plugin ids out
// of the host configuration. Returns false when no plugin carries it.
func (c *Client) PluginSetting(ctx context.Context, pluginIDs []string, name string) (string, bool, error) {
	var data struct {
		Configuration struct {
			Plugins map[string]map[string]any `json:"plugins"`
		} `json:"configuration"`
	}
	if err := c.query(ctx, pluginConfigQuery, map[string]any{"ids": pluginIDs}, &data); err != nil {
		return "", false, err
	}
	for _, id := range pluginIDs {
		settings, ok := data.Configuration.Plugins[id]
		if !ok {
			continue
		}
		if value, ok := settings[name]; ok {
			if text := settingString(value); text != "" {
				return text, true, nil
			}
		}
	}
	return "", false, nil
}

// settingString renders a stored plugin setting; the host keeps booleans
// and numbers as JSON scalars, not strings.
func settingString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func truncate(body []byte, limit int) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
