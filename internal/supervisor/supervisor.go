package supervisor

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/procwatch/procwatch/internal/classify"
	"github.com/procwatch/procwatch/internal/errors"
	"github.com/procwatch/procwatch/internal/event"
	"github.com/procwatch/procwatch/internal/logging"
	"github.com/procwatch/procwatch/internal/reaper"
	"github.com/procwatch/procwatch/internal/serial"
)

// defaultGracePeriod is how long a close transition waits after SIGTERM
// before escalating to SIGKILL.
const defaultGracePeriod = 5 * time.Second

// ReapFunc terminates stray processes matching a command signature before a
// close transition. Injected so tests can observe or suppress reaping.
type ReapFunc func(ctx context.Context, bin string, args []string) error

// Supervisor owns the lifecycle of a single external server process. Open
// and Close may be called repeatedly and concurrently: transitions are
// serialized through a depth-1 queue and calls arriving while a same-kind
// transition is in flight coalesce onto the existing pending handle.
type Supervisor struct {
	cfg      ServerConfig
	logger   *logging.Logger
	bus      *event.Bus
	queue    *serial.Queue
	classify classify.Func
	spawner  Spawner
	reap     ReapFunc

	gracePeriod time.Duration
	strictKill  bool

	mu         sync.Mutex
	opening    bool
	running    bool
	closing    bool
	everOpened bool
	proc       Process
	exited     chan struct{} // closed by the exit watcher after the close event
	pendOpen   *serial.Handle
	pendClose  *serial.Handle
}

// New creates a Supervisor for the given resolved server configuration.
func New(cfg ServerConfig, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithComponent("supervisor").WithServer(cfg.Bin)
	return &Supervisor{
		cfg:         cfg,
		logger:      logger,
		bus:         event.NewBus(),
		queue:       serial.NewQueue(),
		classify:    classify.Classify,
		spawner:     ExecSpawner{},
		reap:        reaper.New(logger).Reap,
		gracePeriod: defaultGracePeriod,
	}
}

// SetSpawner replaces the process spawn strategy.
func (s *Supervisor) SetSpawner(spawner Spawner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if spawner == nil {
		spawner = ExecSpawner{}
	}
	s.spawner = spawner
}

// SetReaper replaces the defensive reap step run before close transitions.
func (s *Supervisor) SetReaper(reap ReapFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reap = reap
}

// SetClassifier replaces the output classifier.
func (s *Supervisor) SetClassifier(fn classify.Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = classify.Classify
	}
	s.classify = fn
}

// SetGracePeriod sets how long close waits after SIGTERM before escalating
// to SIGKILL.
func (s *Supervisor) SetGracePeriod(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.gracePeriod = d
	}
}

// SetStrictKill controls whether signal-delivery failures during close are
// surfaced on the close handle. The default is best-effort: kill failures
// are logged and the close handle settles with no error.
func (s *Supervisor) SetStrictKill(strict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strictKill = strict
}

// Events returns the bus on which lifecycle notifications are published.
func (s *Supervisor) Events() *event.Bus {
	return s.bus
}

// Config returns the server configuration this supervisor was created with.
func (s *Supervisor) Config() ServerConfig {
	return s.cfg
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.opening:
		return StateOpening
	case s.closing:
		return StateClosing
	case s.running:
		return StateRunning
	case s.everOpened:
		return StateClosed
	default:
		return StateIdle
	}
}

// PID returns the process ID of the live server, or 0 if none.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.PID()
}

// Open starts the server if it is not already starting or running. The
// returned handle settles with nil once the server reports readiness, or
// with a classified error if startup fails. Repeated calls while an open
// transition is in flight return the same handle; no second process is
// spawned.
func (s *Supervisor) Open() *serial.Handle {
	s.mu.Lock()
	if s.pendOpen != nil && !s.pendOpen.Settled() {
		h := s.pendOpen
		s.mu.Unlock()
		return h
	}
	s.opening = true
	s.closing = false
	h := s.queue.Enqueue(s.openTransition)
	s.pendOpen = h
	s.mu.Unlock()

	h.Notify(func(error) {
		s.mu.Lock()
		if s.pendOpen == h {
			s.pendOpen = nil
		}
		s.mu.Unlock()
	})
	return h
}

// Close stops the server if it is running. Before the stop transition is
// queued, stray processes sharing this server's command signature are reaped
// best-effort. The returned handle settles with nil once the server has
// exited; closing a never-opened or already-closed supervisor is a harmless
// no-op. Repeated calls while a close transition is in flight return the
// same handle.
func (s *Supervisor) Close() *serial.Handle {
	s.mu.Lock()
	if s.pendClose != nil && !s.pendClose.Settled() {
		h := s.pendClose
		s.mu.Unlock()
		return h
	}
	reap := s.reap
	s.mu.Unlock()

	// Defensive reap. Lookup failures must not prevent the close attempt.
	if reap != nil {
		if err := reap(context.Background(), s.cfg.Bin, s.cfg.Args); err != nil {
			s.logger.Warn("defensive reap failed", "error", err.Error())
		}
	}

	s.mu.Lock()
	if s.pendClose != nil && !s.pendClose.Settled() {
		// Another Close raced us while the reaper ran.
		h := s.pendClose
		s.mu.Unlock()
		return h
	}
	s.closing = true
	s.opening = false
	h := s.queue.Enqueue(s.closeTransition)
	s.pendClose = h
	s.mu.Unlock()

	h.Notify(func(error) {
		s.mu.Lock()
		if s.pendClose == h {
			s.pendClose = nil
		}
		s.mu.Unlock()
	})
	return h
}

// openTransition runs on the serial queue and performs the actual spawn and
// readiness wait.
func (s *Supervisor) openTransition() error {
	s.mu.Lock()
	if s.closing || s.running {
		// A close superseded this open, or the server is already up.
		s.opening = false
		s.mu.Unlock()
		return nil
	}
	spawner := s.spawner
	s.mu.Unlock()

	s.bus.Publish(event.NewOpeningEvent(s.cfg.Bin))
	s.logger.Info("opening server", "args", strings.Join(s.cfg.Args, " "))

	proc, err := spawner.Spawn(s.cfg)
	if err != nil {
		s.mu.Lock()
		s.opening = false
		s.everOpened = true
		s.mu.Unlock()
		s.logger.Error("spawn failed", "error", err.Error())
		return errors.NewSpawnFailed(err)
	}

	exited := make(chan struct{})
	verdicts := make(chan classify.Result, 1)

	s.mu.Lock()
	s.proc = proc
	s.exited = exited
	s.everOpened = true
	s.mu.Unlock()

	registerExitHook(s)
	go s.pumpOutput(proc, verdicts)
	go s.watchExit(proc, exited)

	if s.cfg.Daemonize {
		// A daemonizing server detaches and may never write to its stream
		// again; synthesize the readiness verdict it cannot deliver.
		return s.settleOpen(classify.Result{Outcome: classify.OutcomeReady}, proc, exited)
	}

	select {
	case res := <-verdicts:
		return s.settleOpen(res, proc, exited)
	case <-exited:
		s.mu.Lock()
		s.opening = false
		s.mu.Unlock()
		return errors.NewGeneric("server exited before reporting ready")
	}
}

// settleOpen applies the first definitive classification to the state
// machine. A ready verdict completes the open; an error verdict shuts the
// process down and rejects the open only after the process has exited, so
// callers never observe a rejected open with a live process handle.
func (s *Supervisor) settleOpen(res classify.Result, proc Process, exited <-chan struct{}) error {
	if res.Outcome == classify.OutcomeReady {
		s.mu.Lock()
		s.opening = false
		s.running = true
		s.mu.Unlock()
		s.bus.Publish(event.NewOpenEvent(s.cfg.Bin, proc.PID()))
		s.logger.Info("server ready", "pid", proc.PID())
		return nil
	}

	s.mu.Lock()
	s.opening = false
	s.closing = true
	s.mu.Unlock()
	s.bus.Publish(event.NewClosingEvent(s.cfg.Bin))
	s.logger.Error("server failed to start",
		"kind", res.Kind.String(),
		"message", res.Message)
	_ = s.shutdown(proc, exited)
	return res.Err()
}

// closeTransition runs on the serial queue and performs the actual stop.
func (s *Supervisor) closeTransition() error {
	s.mu.Lock()
	if s.opening || !s.running {
		// Nothing to stop: either the open superseding us will observe the
		// closing flag and no-op itself, or there is no live process.
		s.closing = false
		s.mu.Unlock()
		return nil
	}
	proc := s.proc
	exited := s.exited
	strict := s.strictKill
	s.mu.Unlock()

	s.bus.Publish(event.NewClosingEvent(s.cfg.Bin))
	s.logger.Info("closing server", "pid", proc.PID())

	killErr := s.shutdown(proc, exited)
	if strict {
		return killErr
	}
	if killErr != nil {
		s.logger.Warn("close completed with kill failure", "error", killErr.Error())
	}
	return nil
}

// shutdown delivers SIGTERM, escalates to SIGKILL after the grace period,
// and waits for the exit watcher to fire. The wait after SIGKILL is bounded
// so a failed signal delivery cannot hang the transition forever. Returns
// the first signal-delivery failure, or nil.
func (s *Supervisor) shutdown(proc Process, exited <-chan struct{}) error {
	s.mu.Lock()
	grace := s.gracePeriod
	s.mu.Unlock()

	var killErr error
	if err := proc.Signal(syscall.SIGTERM); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		s.logger.Warn("failed to deliver SIGTERM", "pid", proc.PID(), "error", err.Error())
		killErr = errors.NewKillFailed(err)
	}

	select {
	case <-exited:
		return killErr
	case <-time.After(grace):
	}

	s.logger.Warn("server did not exit in time, escalating to SIGKILL", "pid", proc.PID())
	if err := proc.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		if killErr == nil {
			killErr = errors.NewKillFailed(err)
		}
	}

	select {
	case <-exited:
	case <-time.After(grace):
		if killErr == nil {
			killErr = errors.NewKillFailed(stderrors.New("server did not exit after SIGKILL"))
		}
		s.logger.Error("server did not exit after SIGKILL", "pid", proc.PID())
	}
	return killErr
}

// pumpOutput forwards every raw output chunk to the event bus and feeds
// chunks to the classifier until the first definitive verdict, after which
// classification detaches and only forwarding continues. Returns when the
// stream ends.
func (s *Supervisor) pumpOutput(proc Process, verdicts chan<- classify.Result) {
	defer func() {
		if c, ok := proc.Output().(io.Closer); ok {
			_ = c.Close()
		}
	}()

	buf := make([]byte, 4096)
	classifying := true
	for {
		n, err := proc.Output().Read(buf)
		if n > 0 {
			text := string(buf[:n])
			s.bus.Publish(event.NewStdoutEvent(s.cfg.Bin, text))
			if classifying {
				if res, ok := s.classify(text); ok {
					verdicts <- res
					classifying = false
				}
			}
		}
		if err != nil {
			// EOF on pipes; pty reads fail with EIO once the child exits.
			return
		}
	}
}

// watchExit clears the process handle and lifecycle flags the moment the
// process is observed to exit, regardless of cause, then emits the close
// event. Transitions waiting on the exited channel resume only after the
// event is out, which fixes the event order at opening, open, closing,
// close.
func (s *Supervisor) watchExit(proc Process, exited chan struct{}) {
	<-proc.Done()

	s.mu.Lock()
	if s.proc == proc {
		s.proc = nil
	}
	s.running = false
	s.closing = false
	s.mu.Unlock()

	deregisterExitHook(s)
	s.bus.Publish(event.NewCloseEvent(s.cfg.Bin))
	s.logger.Info("server exited", "pid", proc.PID())
	close(exited)
}
