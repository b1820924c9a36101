package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subgen/internal/history"
	"subgen/internal/transcriber"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var (
		sceneID   int64
		filePath  string
		latest    bool
		serverURL string
		stashURL  string
		translate bool
		language  string
		overwrite bool
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Transcribe a scene or a local video file",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := 0
			if sceneID > 0 {
				targets++
			}
			if filePath != "" {
				targets++
			}
			if latest {
				targets++
			}
			if targets != 1 {
				return fmt.Errorf("exactly one of --scene, --file, or --latest is required")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			if stashURL != "" {
				cfg.Stash.URL = stashURL
			}

			client := buildWhisperClient(cfg, serverURL, logger)
			store := openHistory(cfg, logger)
			defer store.Close()
			svc := transcriber.New(cfg, client, store, logger)

			req := transcriber.Request{
				Source:    history.SourceCLI,
				Translate: translate || cfg.Whisper.TranslateToEnglish,
				Language:  language,
				Overwrite: overwrite || cfg.Whisper.OverwriteExistingSRT,
				DryRun:    dryRun || cfg.DryRun,
			}
			if req.Language == "" {
				req.Language = cfg.Whisper.Language
			}

			var result *transcriber.Result
			switch {
			case filePath != "":
				req.VideoPath = filePath
				result, err = svc.Transcribe(cmd.Context(), req)
			case sceneID > 0:
				resolver := buildStashClient(cfg, logger)
				result, err = svc.TranscribeScene(cmd.Context(), resolver, sceneID, req)
			default:
				resolver := buildStashClient(cfg, logger)
				result, err = svc.TranscribeLatest(cmd.Context(), resolver, req)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case result.Skipped:
				fmt.Fprintf(out, "Skipped: %s (%s)\n", result.SubtitlePath, result.SkipReason)
			case result.DryRun:
				fmt.Fprintf(out, "Dry run: would write %s\n", result.SubtitlePath)
			default:
				fmt.Fprintf(out, "Wrote %s (%d cues)\n", result.SubtitlePath, result.CueCount)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&sceneID, "scene", 0, "Scene id to transcribe via the host API")
	cmd.Flags().StringVar(&filePath, "file", "", "Local video file to transcribe directly")
	cmd.Flags().BoolVar(&latest, "latest", false, "Transcribe the most recently updated scene")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "Inference endpoint override")
	cmd.Flags().StringVar(&stashURL, "stash-url", "", "Host GraphQL base URL override")
	cmd.Flags().BoolVar(&translate, "translate", false, "Request an English translation")
	cmd.Flags().StringVar(&language, "language", "", "Source language hint")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing subtitle")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log what would happen without side effects")
	return cmd
}
