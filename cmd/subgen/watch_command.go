package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subgen/internal/history"
	"subgen/internal/transcriber"
	"subgen/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		dir       string
		serverURL string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and transcribe new videos as they appear",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := dir
			if root == "" {
				root = cfg.Paths.WatchDir
			}
			if root == "" {
				return fmt.Errorf("no watch directory: pass --dir or set paths.watch_dir")
			}

			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			client := buildWhisperClient(cfg, serverURL, logger)
			store := openHistory(cfg, logger)
			defer store.Close()
			svc := transcriber.New(cfg, client, store, logger)

			handler := func(ctx context.Context, path string) error {
				if previouslyTranscribed(ctx, store, path) {
					logger.Debug("already transcribed, skipping", "video", path)
					return nil
				}
				_, err := svc.Transcribe(ctx, transcriber.Request{
					VideoPath: path,
					Source:    history.SourceWatch,
					Translate: cfg.Whisper.TranslateToEnglish,
					Language:  cfg.Whisper.Language,
					DryRun:    cfg.DryRun,
				})
				return err
			}

			w, err := watcher.New(root, watcher.Options{
				Extensions:    cfg.Watch.Extensions,
				SettleDelay:   time.Duration(cfg.Watch.SettleSeconds) * time.Second,
				MaxConcurrent: cfg.Watch.MaxConcurrent,
			}, handler, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("watching for new videos", "dir", root)
			if err := w.Run(runCtx); err != nil && runCtx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to watch (defaults to paths.watch_dir)")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "Inference endpoint override")
	return cmd
}

// previouslyTranscribed reports whether a completed job already covers the
// path. The sidecar check catches most repeats; the history lookup also
// skips videos whose subtitle has since been moved elsewhere.
func previouslyTranscribed(ctx context.Context, store *history.Store, path string) bool {
	if store == nil {
		return false
	}
	job, err := store.LastCompletedForPath(ctx, path)
	return err == nil && job != nil
}
