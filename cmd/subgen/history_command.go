package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subgen/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transcription jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			jobs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}

			headers := []string{"Job", "Status", "Source", "Scene", "Video", "Elapsed", "Started"}
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					shortID(job.JobID),
					string(job.Status),
					string(job.Source),
					sceneLabel(job.SceneID),
					filepath.Base(job.VideoPath),
					elapsedLabel(job),
					job.StartedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable(headers, rows, 4, 6))

			for _, job := range jobs {
				if job.Status == history.StatusFailed && job.ErrorMessage != "" {
					fmt.Fprintf(out, "%s: %s\n", shortID(job.JobID), job.ErrorMessage)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to show")
	return cmd
}

func shortID(jobID string) string {
	if len(jobID) > 8 {
		return jobID[:8]
	}
	return jobID
}

func sceneLabel(sceneID int64) string {
	if sceneID <= 0 {
		return "-"
	}
	return strconv.FormatInt(sceneID, 10)
}

func elapsedLabel(job *history.Job) string {
	d := job.Duration()
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
