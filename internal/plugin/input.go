package plugin

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Setting names recognized in the host UI.
const (
	SettingServerURL    = "serverUrl"
	SettingTranslate    = "translateToEnglish"
	SettingDebugTracing = "zzdebugTracing"
	SettingDryRun       = "zzdryRun"
)

// Task names dispatched by the host.
const (
	TaskTranscribeScene = "transcribe_scene_task"
	TaskTranscribeLast  = "transcribe_last_scene"
)

// SessionCookie carries the host session cookie for GraphQL calls.
type SessionCookie struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// ServerConnection describes how to reach the host API.
type ServerConnection struct {
	Scheme        string        `json:"Scheme"`
	Host          string        `json:"Host"`
	Port          int           `json:"Port"`
	SessionCookie SessionCookie `json:"SessionCookie"`
	Dir           string        `json:"Dir"`
	PluginDir     string        `json:"PluginDir"`
}

// GraphQLURL derives the host GraphQL endpoint from the connection block.
func (sc ServerConnection) GraphQLURL() string {
	scheme := sc.Scheme
	if scheme == "" {
		scheme = "http"
	}
	host := sc.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	if sc.Port > 0 {
		return fmt.Sprintf("%s://%s:%d/graphql", scheme, host, sc.Port)
	}
	return fmt.Sprintf("%s://%s/graphql", scheme, host)
}

// HookContext is present when the host invoked the plugin from a hook.
type HookContext struct {
	ID    json.RawMessage `json:"id"`
	Type  string          `json:"type"`
	Input json.RawMessage `json:"input"`
}

// SceneID returns the hook's scene id, or false when absent or malformed.
func (h *HookContext) SceneID() (int64, bool) {
	if h == nil {
		return 0, false
	}
	return parseID(h.ID)
}

func parseID(raw json.RawMessage) (int64, bool) {
	trimmed := strings.TrimSpace(string(raw))
	trimmed = strings.Trim(trimmed, `"`)
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// HasInput reports whether the hook carried a non-null input document.
// Deliveries with null input are treated as no-ops.
func (h *HookContext) HasInput() bool {
	if h == nil {
		return false
	}
	trimmed := strings.TrimSpace(string(h.Input))
	return trimmed != "" && trimmed != "null"
}

// Args is the host task argument block. scene_id arrives as a number or a
// string depending on the host version, so it decodes raw.
type Args struct {
	Mode        string          `json:"mode"`
	SceneID     json.RawMessage `json:"scene_id"`
	ServerURL   string          `json:"serverUrl"`
	HookContext *HookContext    `json:"hookContext"`
}

// Input is the full plugin payload read from stdin.
type Input struct {
	ServerConnection ServerConnection `json:"server_connection"`
	Args             Args             `json:"args"`
	settings         settingsBag
}

// rawInput mirrors the wire layout; settings appear under either key and
// in either shape, so they decode into RawMessage first.
type rawInput struct {
	ServerConnection ServerConnection `json:"server_connection"`
	Args             json.RawMessage  `json:"args"`
	Settings         json.RawMessage  `json:"settings"`
	PluginSettings   json.RawMessage  `json:"pluginSettings"`
	Task             struct {
		Name string `json:"name"`
	} `json:"task"`
}

// ReadInput decodes the plugin payload from r. An empty stream yields an
// empty Input rather than an error so a bare invocation stays a no-op.
func ReadInput(r io.Reader) (*Input, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plugin input: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &Input{}, nil
	}

	var raw rawInput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse plugin input: %w", err)
	}

	input := &Input{ServerConnection: raw.ServerConnection}
	if len(raw.Args) > 0 {
		if err := json.Unmarshal(raw.Args, &input.Args); err != nil {
			return nil, fmt.Errorf("parse plugin args: %w", err)
		}
	}
	input.settings = parseSettings(raw.Settings, raw.PluginSettings)
	input.settings.taskName = raw.Task.Name
	return input, nil
}

// TaskName returns the task the host asked for: the task block name when
// present, otherwise args.mode.
func (in *Input) TaskName() string {
	if name := strings.TrimSpace(in.settings.taskName); name != "" {
		return name
	}
	return strings.TrimSpace(in.Args.Mode)
}

// SceneID returns the explicit scene id argument, or false when absent.
func (in *Input) SceneID() (int64, bool) {
	return parseID(in.Args.SceneID)
}

// Setting returns the named plugin setting as a string, with ok reporting
// whether the host supplied it in any recognized shape.
func (in *Input) Setting(name string) (string, bool) {
	return in.settings.lookup(name)
}

// BoolSetting returns the named setting interpreted as a boolean.
func (in *Input) BoolSetting(name string) (bool, bool) {
	value, ok := in.settings.lookup(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off", "":
		return false, true
	default:
		return false, false
	}
}
