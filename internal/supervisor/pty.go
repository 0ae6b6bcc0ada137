package supervisor

import (
	"os/exec"

	"github.com/creack/pty"
)

// PTYSpawner starts the server attached to a pseudo-terminal. Servers that
// line-buffer their diagnostics only when attached to a terminal (the libc
// default when stdout is a pipe is full buffering) flush readiness lines
// promptly under a pty, which matters because classification waits on them.
type PTYSpawner struct{}

// Spawn starts the server process under a pty. Both stdout and stderr of the
// child arrive on the pty stream.
func (PTYSpawner) Spawn(cfg ServerConfig) (Process, error) {
	cmd := exec.Command(cfg.Bin, cfg.Args...)

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}

	p := &osProcess{
		cmd:  cmd,
		out:  f,
		done: make(chan struct{}),
	}
	go p.wait()
	return p, nil
}
