package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"subgen/internal/config"
	"subgen/internal/history"
	"subgen/internal/logging"
	"subgen/internal/plugin"
	"subgen/internal/services/stash"
	"subgen/internal/transcriber"
)

// pluginID is the identifier the host registers the plugin under, used for
// the GraphQL settings fallback.
const pluginID = "subgen"

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run as a host plugin, reading the payload from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlugin(cmd, ctx)
		},
	}
}

// runPlugin executes one plugin invocation. Failures are reported through
// the stdout envelope so the host surfaces them in its task log; the process
// still exits zero.
func runPlugin(cmd *cobra.Command, cmdCtx *commandContext) error {
	out := cmd.OutOrStdout()

	input, err := plugin.ReadInput(cmd.InOrStdin())
	if err != nil {
		return plugin.WriteError(out, err)
	}

	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return plugin.WriteError(out, err)
	}

	ctx := cmd.Context()
	host := hostClient(cfg, input)
	settings := resolveRunSettings(ctx, cfg, input, host)
	logger := logging.NewPlugin(settings.debug)

	result, err := dispatch(ctx, cfg, input, host, settings, logger)
	if err != nil {
		logger.Error("plugin run failed", "error", err)
		return plugin.WriteError(out, err)
	}
	return plugin.WriteResult(out, result)
}

func dispatch(ctx context.Context, cfg *config.Config, input *plugin.Input, host *stash.Client, settings runSettings, logger *slog.Logger) (any, error) {
	buildService := func() (*transcriber.Service, *history.Store) {
		client := buildWhisperClient(cfg, settings.serverURL, logger)
		store := openHistory(cfg, logger)
		return transcriber.New(cfg, client, store, logger), store
	}
	req := transcriber.Request{
		Translate: settings.translate,
		Language:  cfg.Whisper.Language,
		Overwrite: cfg.Whisper.OverwriteExistingSRT,
		DryRun:    settings.dryRun,
	}

	switch task := input.TaskName(); task {
	case plugin.TaskTranscribeScene:
		sceneID, ok := input.SceneID()
		if !ok {
			return nil, fmt.Errorf("task %s requires a scene_id argument", task)
		}
		req.Source = history.SourceTask
		svc, store := buildService()
		defer store.Close()
		return describe(svc.TranscribeScene(ctx, host, sceneID, req))
	case plugin.TaskTranscribeLast:
		req.Source = history.SourceTask
		svc, store := buildService()
		defer store.Close()
		return describe(svc.TranscribeLatest(ctx, host, req))
	default:
		if hook := input.Args.HookContext; hook != nil {
			if !hook.HasInput() {
				logger.Debug("hook delivered without input, nothing to do")
				return "hook input empty, nothing to do", nil
			}
			req.Source = history.SourceHook
			svc, store := buildService()
			defer store.Close()
			// Hooks normally carry the scene id; some deliveries omit it
			// and the freshest scene is the one that fired the hook.
			if sceneID, ok := hook.SceneID(); ok {
				return describe(svc.TranscribeScene(ctx, host, sceneID, req))
			}
			return describe(svc.TranscribeLatest(ctx, host, req))
		}
		if task != "" {
			logger.Debug("unrecognized task, nothing to do", "task", task)
		} else {
			logger.Debug("no task or hook in payload")
		}
		return "no task requested", nil
	}
}

func describe(result *transcriber.Result, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	switch {
	case result.Skipped:
		return fmt.Sprintf("skipped: %s", result.SkipReason), nil
	case result.DryRun:
		return fmt.Sprintf("dry run: would write %s", result.SubtitlePath), nil
	default:
		return fmt.Sprintf("wrote %s (%d cues)", result.SubtitlePath, result.CueCount), nil
	}
}

// hostClient builds a GraphQL client from the payload's server connection,
// falling back to the configured host URL when the payload has none.
func hostClient(cfg *config.Config, input *plugin.Input) *stash.Client {
	conn := input.ServerConnection
	opts := []stash.Option{}
	if cfg.Stash.APIKey != "" {
		opts = append(opts, stash.WithAPIKey(cfg.Stash.APIKey))
	}
	if conn.Host == "" {
		return stash.NewClient(cfg.Stash.URL, opts...)
	}
	if conn.SessionCookie.Value != "" {
		name := conn.SessionCookie.Name
		if name == "" {
			name = "session"
		}
		opts = append(opts, stash.WithSessionCookie(name, conn.SessionCookie.Value))
	}
	return stash.NewClient(conn.GraphQLURL(), opts...)
}

type runSettings struct {
	serverURL string
	translate bool
	dryRun    bool
	debug     bool
}

// resolveRunSettings walks the settings ladder: explicit task argument,
// then payload settings, then the host's stored plugin configuration, then
// the local config (which already folds in the environment override).
func resolveRunSettings(ctx context.Context, cfg *config.Config, input *plugin.Input, host *stash.Client) runSettings {
	settings := runSettings{
		serverURL: cfg.Whisper.ServerURL,
		translate: cfg.Whisper.TranslateToEnglish,
		dryRun:    cfg.DryRun,
	}

	lookup := func(name string) (string, bool) {
		if value, ok := input.Setting(name); ok {
			return value, true
		}
		if host == nil {
			return "", false
		}
		value, ok, err := host.PluginSetting(ctx, []string{pluginID}, name)
		if err != nil || !ok {
			return "", false
		}
		return value, true
	}

	if value := strings.TrimSpace(input.Args.ServerURL); value != "" {
		settings.serverURL = value
	} else if value, ok := lookup(plugin.SettingServerURL); ok && strings.TrimSpace(value) != "" {
		settings.serverURL = strings.TrimSpace(value)
	}

	if value, ok := lookup(plugin.SettingTranslate); ok {
		if parsed, ok := parseBoolSetting(value); ok {
			settings.translate = parsed
		}
	}
	if value, ok := lookup(plugin.SettingDryRun); ok {
		if parsed, ok := parseBoolSetting(value); ok {
			settings.dryRun = parsed
		}
	}
	if value, ok := lookup(plugin.SettingDebugTracing); ok {
		if parsed, ok := parseBoolSetting(value); ok {
			settings.debug = parsed
		}
	}
	return settings
}

func parseBoolSetting(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off", "":
		return false, true
	default:
		return false, false
	}
}
