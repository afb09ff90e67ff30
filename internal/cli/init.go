package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"xpurge/internal/cmdlog"
	"xpurge/internal/config"
	"xpurge/internal/theme"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdlog.Run("init", func() error { return runInit(cmd) })
		},
	}
	cmd.Flags().String("path", "./xpurge.yaml", "Path to write config")
	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("path")
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(path)
	out := cmd.OutOrStdout()
	fmt.Fprint(out, theme.Banner())
	fmt.Fprintln(out, "Config written to:", abs)
	return nil
}
