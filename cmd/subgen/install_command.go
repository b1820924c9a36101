package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"subgen/internal/config"
	"subgen/internal/uiassets"
)

func newInstallCommand(ctx *commandContext) *cobra.Command {
	var (
		dir    string
		binary string
	)

	cmd := &cobra.Command{
		Use:         "install",
		Short:       "Install the plugin manifest and UI script into a host plugin directory",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				return fmt.Errorf("--plugin-dir is required (the host's plugins directory)")
			}
			expanded, err := config.ExpandPath(dir)
			if err != nil {
				return fmt.Errorf("resolve plugin dir: %w", err)
			}
			target := filepath.Join(expanded, "subgen")

			if binary == "" {
				executable, err := os.Executable()
				if err != nil {
					return fmt.Errorf("locate executable: %w", err)
				}
				binary = executable
			}

			if err := uiassets.Install(target, binary); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Installed plugin into %s\n", target)
			fmt.Fprintln(out, "Reload plugins in the host UI to pick it up.")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "plugin-dir", "", "Host plugins directory")
	cmd.Flags().StringVar(&binary, "binary", "", "Path the manifest should launch (defaults to this executable)")
	return cmd
}
