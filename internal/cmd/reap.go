package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/procwatch/procwatch/internal/config"
	"github.com/procwatch/procwatch/internal/reaper"
)

var reapCmd = &cobra.Command{
	Use:   "reap",
	Short: "Terminate stray server processes",
	Long: `Find processes whose command line matches the configured server
exactly and terminate them. Useful after a crash leaves an orphaned
server holding its port.`,
	RunE: runReap,
}

func init() {
	rootCmd.AddCommand(reapCmd)
}

func runReap(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	resolved, err := cfg.Server.Resolve()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := reaper.New(logger).Reap(cmd.Context(), resolved.Bin, resolved.Args); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "procwatch: reap complete")
	return nil
}
