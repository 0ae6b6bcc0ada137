package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/procwatch/procwatch/internal/config"
	"github.com/procwatch/procwatch/internal/event"
	"github.com/procwatch/procwatch/internal/logging"
	"github.com/procwatch/procwatch/internal/supervisor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the server and supervise it until it exits",
	Long: `Start the configured server process, wait for it to report
readiness, and mirror its output. The server is stopped cleanly when
procwatch receives an interrupt.

Examples:
  # Run the configured server
  procwatch run

  # Run a specific binary with a config file
  procwatch run --bin redis-server --conf /etc/redis/redis.conf

  # Run under a pseudo-terminal
  procwatch run --pty`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("bin", "", "server executable (overrides config)")
	_ = viper.BindPFlag("server.bin", runCmd.Flags().Lookup("bin"))

	runCmd.Flags().String("conf", "", "server configuration file passed as the first argument")
	_ = viper.BindPFlag("server.conf", runCmd.Flags().Lookup("conf"))

	runCmd.Flags().Bool("daemonize", false, "expect the server to detach after startup")
	_ = viper.BindPFlag("server.daemonize", runCmd.Flags().Lookup("daemonize"))

	runCmd.Flags().Bool("pty", false, "run the server under a pseudo-terminal")
	_ = viper.BindPFlag("server.use_pty", runCmd.Flags().Lookup("pty"))

	runCmd.Flags().Bool("strict-kill", false, "fail the stop if the server cannot be signaled")
	_ = viper.BindPFlag("server.strict_kill", runCmd.Flags().Lookup("strict-kill"))
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	sup := supervisor.New(resolved, logger)
	sup.SetGracePeriod(cfg.Server.GracePeriod())
	sup.SetStrictKill(cfg.Server.StrictKill)
	if cfg.Server.UsePty {
		sup.SetSpawner(supervisor.PTYSpawner{})
	}
	defer sup.Events().Clear()

	closed := make(chan struct{}, 1)
	sup.Events().Subscribe(event.TypeClose, func(event.Event) {
		select {
		case closed <- struct{}{}:
		default:
		}
	})
	sup.Events().Subscribe(event.TypeStdout, func(e event.Event) {
		fmt.Print(e.(event.StdoutEvent).Text)
	})

	open := sup.Open()
	<-open.Done()
	if err := open.Err(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "procwatch: server ready (pid %d)\n", sup.PID())

	// Block until the server exits, whether on its own or because an
	// interrupt triggered the shutdown hook.
	<-closed
	return nil
}
