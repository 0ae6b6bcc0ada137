// Package supervisor coordinates the lifecycle of a single external server
// process: starting it, deciding from its output whether it became ready or
// failed, stopping it cleanly, and serializing concurrent open/close requests
// so they never race or double-spawn.
//
// This package provides a clean abstraction over the underlying process
// execution mechanism to enable testability and alternative spawn strategies
// (plain pipes or a pseudo-terminal).
package supervisor

import (
	"errors"
	"io"
	"os"
	"os/exec"
)

// ServerConfig is the resolved description of the server to supervise.
// It is immutable once handed to a Supervisor.
type ServerConfig struct {
	// Bin is the path to the server executable.
	Bin string

	// Args is the ordered argument list passed to the executable.
	Args []string

	// Daemonize indicates the server detaches after startup. A daemonizing
	// server's output stream may never emit a readiness line, so the
	// supervisor synthesizes one immediately after spawn.
	Daemonize bool
}

// Validate checks that the config describes a launchable server.
func (c ServerConfig) Validate() error {
	if c.Bin == "" {
		return errors.New("server binary path is required")
	}
	return nil
}

// Process is an opaque handle to a live server process. It is owned
// exclusively by the Supervisor while the process is alive and becomes
// invalid the instant the process is observed to exit.
type Process interface {
	// PID returns the OS process ID.
	PID() int

	// Output returns the merged stdout/stderr stream of the process.
	Output() io.Reader

	// Signal delivers sig to the process.
	Signal(sig os.Signal) error

	// Kill forcibly terminates the process.
	Kill() error

	// Done returns a channel that is closed once the process has exited
	// and been reaped.
	Done() <-chan struct{}
}

// Spawner creates server processes. Implementations must return a Process
// whose output stream is already flowing, or an error if the OS could not
// create the process.
type Spawner interface {
	Spawn(cfg ServerConfig) (Process, error)
}

// osProcess is the Process implementation shared by the exec and pty
// spawners.
type osProcess struct {
	cmd  *exec.Cmd
	out  io.Reader
	done chan struct{}
}

func (p *osProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *osProcess) Output() io.Reader {
	return p.out
}

func (p *osProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p *osProcess) Kill() error {
	return p.cmd.Process.Kill()
}

func (p *osProcess) Done() <-chan struct{} {
	return p.done
}

// wait reaps the child and then closes the done channel. The output stream
// is deliberately left open until readers drain it; EOF arrives once the
// child's write end closes.
func (p *osProcess) wait() {
	_ = p.cmd.Wait()
	close(p.done)
}

// ExecSpawner starts the server as a plain child process with stdout and
// stderr merged into a single pipe. This is the default spawner.
type ExecSpawner struct{}

// Spawn starts the server process.
func (ExecSpawner) Spawn(cfg ServerConfig) (Process, error) {
	cmd := exec.Command(cfg.Bin, cfg.Args...)

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, err
	}
	// The child holds the write end now; closing ours makes the read end
	// deliver EOF when the child exits.
	pw.Close()

	p := &osProcess{
		cmd:  cmd,
		out:  pr,
		done: make(chan struct{}),
	}
	go p.wait()
	return p, nil
}
