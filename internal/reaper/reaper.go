// Package reaper locates stray OS processes that share a command signature
// with the supervised server and terminates them. It runs defensively before
// a close transition so a previous run that leaked a server cannot hold the
// listen port hostage.
package reaper

import (
	"context"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sync/errgroup"

	"github.com/procwatch/procwatch/internal/errors"
	"github.com/procwatch/procwatch/internal/logging"
)

// Reaper finds and signals processes matching a command signature.
type Reaper struct {
	logger *logging.Logger
}

// New creates a Reaper.
func New(logger *logging.Logger) *Reaper {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Reaper{logger: logger.WithComponent("reaper")}
}

// Reap enumerates the process table and sends SIGTERM to every process whose
// invoked command and full argument list match the given signature. It
// returns once every signal has been delivered; it does not wait for the
// processes to exit. Finding no matches is not an error.
//
// A failure to enumerate the process table is fatal and returned as a
// ReaperLookup error. Failures delivering a signal to an individual match
// are logged and discarded: the process may simply have exited between
// enumeration and delivery.
func (r *Reaper) Reap(ctx context.Context, bin string, args []string) error {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return errors.NewReaperLookup(err)
	}

	g, ctx := errgroup.WithContext(ctx)
	matched := 0
	for _, p := range procs {
		cmdline, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			// Process exited mid-scan or is not ours to inspect.
			continue
		}
		if !matchesSignature(cmdline, bin, args) {
			continue
		}

		matched++
		p := p
		g.Go(func() error {
			if err := p.TerminateWithContext(ctx); err != nil {
				r.logger.Warn("failed to signal stray process",
					"pid", p.Pid,
					"error", err.Error())
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if matched > 0 {
		r.logger.Info("terminated stray processes", "bin", bin, "count", matched)
	}
	return nil
}

// matchesSignature reports whether a process command line matches the
// supervised server's invocation. The executable is compared by basename so
// a stray started via a different path spelling is still caught; arguments
// must match exactly, in order.
func matchesSignature(cmdline []string, bin string, args []string) bool {
	if len(cmdline) != len(args)+1 {
		return false
	}
	if filepath.Base(cmdline[0]) != filepath.Base(bin) {
		return false
	}
	for i, arg := range args {
		if cmdline[i+1] != arg {
			return false
		}
	}
	return true
}
