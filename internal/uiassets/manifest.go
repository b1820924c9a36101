// Package uiassets renders the host plugin manifest and installs it together
// with the embedded browser script.
package uiassets

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"subgen/internal/plugin"
)

//go:embed assets/subgen.js
var uiScript []byte

// Version is the manifest version stamped at install time.
const Version = "0.3.0"

// ScriptName is the browser asset filename referenced by the manifest.
const ScriptName = "subgen.js"

// ManifestName is the plugin manifest filename the host scans for.
const ManifestName = "subgen.yml"

type manifestSetting struct {
	DisplayName string `yaml:"displayName"`
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type"`
}

type manifestHook struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	TriggeredBy []string `yaml:"triggeredBy"`
}

type manifestTask struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	DefaultArgs map[string]any `yaml:"defaultArgs,omitempty"`
}

type manifestUI struct {
	JavaScript []string `yaml:"javascript"`
}

type manifest struct {
	Name        string                     `yaml:"name"`
	Description string                     `yaml:"description"`
	Version     string                     `yaml:"version"`
	Exec        []string                   `yaml:"exec"`
	Interface   string                     `yaml:"interface"`
	ErrLog      string                     `yaml:"errLog"`
	Hooks       []manifestHook             `yaml:"hooks"`
	Tasks       []manifestTask             `yaml:"tasks"`
	Settings    map[string]manifestSetting `yaml:"settings"`
	UI          manifestUI                 `yaml:"ui"`
}

// RenderManifest produces the plugin manifest YAML. binaryPath is the exec
// entry the host uses to launch the plugin.
func RenderManifest(binaryPath string) ([]byte, error) {
	m := manifest{
		Name:        "subgen",
		Description: "Generates SRT subtitles for scenes via a whisper.cpp inference server",
		Version:     Version,
		Exec:        []string{binaryPath, "run"},
		Interface:   "raw",
		ErrLog:      "error",
		Hooks: []manifestHook{
			{
				Name:        "transcribe on scene update",
				Description: "Transcribes the updated scene if it has no subtitle yet",
				TriggeredBy: []string{"Scene.Update.Post"},
			},
		},
		Tasks: []manifestTask{
			{
				Name:        "Transcribe last scene",
				Description: "Transcribes the most recently updated scene",
				DefaultArgs: map[string]any{"mode": plugin.TaskTranscribeLast},
			},
			{
				Name:        "Transcribe scene",
				Description: "Transcribes the scene named by scene_id",
				DefaultArgs: map[string]any{"mode": plugin.TaskTranscribeScene},
			},
		},
		Settings: map[string]manifestSetting{
			plugin.SettingServerURL: {
				DisplayName: "Whisper server URL",
				Description: "Inference endpoint, e.g. http://127.0.0.1:9191/inference",
				Type:        "STRING",
			},
			plugin.SettingTranslate: {
				DisplayName: "Translate to English",
				Description: "Request an English translation instead of a source-language transcript",
				Type:        "BOOLEAN",
			},
			plugin.SettingDebugTracing: {
				DisplayName: "zz Debug tracing",
				Description: "Verbose plugin logging",
				Type:        "BOOLEAN",
			},
			plugin.SettingDryRun: {
				DisplayName: "zz Dry run",
				Description: "Log what would happen without contacting ffmpeg or writing files",
				Type:        "BOOLEAN",
			},
		},
		UI: manifestUI{JavaScript: []string{ScriptName}},
	}
	return yaml.Marshal(m)
}

// Script returns the embedded browser UI script.
func Script() []byte {
	return uiScript
}

// Install writes the manifest and UI script into a host plugin directory.
func Install(dir, binaryPath string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create plugin dir: %w", err)
	}
	data, err := RenderManifest(binaryPath)
	if err != nil {
		return fmt.Errorf("render manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestName), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ScriptName), uiScript, 0o644); err != nil {
		return fmt.Errorf("write ui script: %w", err)
	}
	return nil
}
