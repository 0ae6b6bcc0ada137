package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/procwatch/procwatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration procwatch would run with, after merging
defaults, the config file, environment variables, and flags. Also shows
the exact command line the server would be started with.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(viper.AllSettings(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	resolved, err := cfg.Server.Resolve()
	if err != nil {
		// The settings above are still useful when the binary is absent.
		fmt.Printf("command: (unresolvable: %v)\n", err)
		return nil
	}
	fmt.Printf("command: %s %s\n", resolved.Bin, strings.Join(resolved.Args, " "))
	return nil
}
