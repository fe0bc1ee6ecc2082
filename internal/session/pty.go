package session

import "os/exec"

// Pty is the minimal pseudo-terminal surface the session needs. The
// production implementation wraps a real PTY master; tests substitute a
// pipe-backed fake.
type Pty interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	Resize(rows, cols uint16) error
}

// PtyFactory starts a command under a pseudo-terminal.
type PtyFactory interface {
	Start(command string, args []string, rows, cols uint16) (Pty, *exec.Cmd, error)
}

type defaultPtyFactory struct{}

func (defaultPtyFactory) Start(command string, args []string, rows, cols uint16) (Pty, *exec.Cmd, error) {
	return startPty(command, args, rows, cols)
}

// DefaultPtyFactory returns the platform PTY implementation.
func DefaultPtyFactory() PtyFactory {
	return defaultPtyFactory{}
}
