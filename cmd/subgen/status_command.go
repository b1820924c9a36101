package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subgen/internal/deps"
	"subgen/internal/history"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check external binaries and inference server reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := buildLogger(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			headers := []string{"Dependency", "Command", "Available", "Detail"}
			rows := make([][]string, 0, len(statuses)+2)
			for _, status := range statuses {
				detail := status.Detail
				if detail == "" {
					detail = status.Description
				}
				rows = append(rows, []string{status.Name, status.Command, yesNo(status.Available), detail})
			}

			client := buildWhisperClient(cfg, serverURL, logger)
			pingErr := client.Ping(cmd.Context())
			serverDetail := "responding"
			if pingErr != nil {
				serverDetail = pingErr.Error()
			}
			rows = append(rows, []string{"Whisper server", client.ServerURL(), yesNo(pingErr == nil), serverDetail})

			dbPath := cfg.HistoryDBPath()
			store, storeErr := history.Open(dbPath)
			historyDetail := "open"
			if storeErr != nil {
				historyDetail = storeErr.Error()
			} else {
				store.Close()
			}
			rows = append(rows, []string{"History database", dbPath, yesNo(storeErr == nil), historyDetail})

			fmt.Fprintln(out, renderTable(headers, rows))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
			}
			if pingErr != nil {
				return fmt.Errorf("inference server unreachable")
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server-url", "", "Inference endpoint override")
	return cmd
}
