//go:build windows

package session

import (
	"errors"
	"os/exec"
)

var errConPTYUnavailable = errors.New("conpty support not implemented")

func startPty(command string, args []string, rows, cols uint16) (Pty, *exec.Cmd, error) {
	return nil, nil, errConPTYUnavailable
}
