package supervisor

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/procwatch/procwatch/internal/serial"
)

// The exit hook is a process-wide safety net: when the host process receives
// a termination signal while supervised servers are alive, every registered
// supervisor is closed before the signal's default behavior proceeds, so no
// child server is orphaned. Supervisors register on spawn and deregister
// once their child has exited, which keeps listeners from leaking across
// repeated open/close cycles.
var (
	hookMu   sync.Mutex
	hooked   = make(map[*Supervisor]struct{})
	hookOnce sync.Once
)

// registerExitHook adds a supervisor to the process-wide registry,
// installing the signal listener on first use.
func registerExitHook(s *Supervisor) {
	hookMu.Lock()
	defer hookMu.Unlock()
	hookOnce.Do(installExitHook)
	hooked[s] = struct{}{}
}

// deregisterExitHook removes a supervisor from the registry.
func deregisterExitHook(s *Supervisor) {
	hookMu.Lock()
	defer hookMu.Unlock()
	delete(hooked, s)
}

// installExitHook starts the listener that closes registered supervisors on
// SIGINT or SIGTERM, then re-delivers the signal so the host process
// observes its default behavior.
func installExitHook() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigs

		hookMu.Lock()
		sups := make([]*Supervisor, 0, len(hooked))
		for s := range hooked {
			sups = append(sups, s)
		}
		hookMu.Unlock()

		handles := make([]*serial.Handle, 0, len(sups))
		for _, s := range sups {
			handles = append(handles, s.Close())
		}
		for _, h := range handles {
			_ = h.Wait()
		}

		signal.Stop(sigs)
		if num, ok := sig.(syscall.Signal); ok {
			_ = syscall.Kill(syscall.Getpid(), num)
		}
	}()
}
