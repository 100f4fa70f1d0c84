//go:build unix

package runner

import (
	"errors"
	"io/fs"
	"os/exec"
	"syscall"
)

// setProcessGroup runs the job in its own process group so signals reach
// every process it spawns.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interruptProcessGroup sends SIGINT to the job's process group.
func interruptProcessGroup(cmd *exec.Cmd) error {
	return signalProcessGroup(cmd, syscall.SIGINT)
}

// killProcessGroup sends SIGKILL to the job's process group.
func killProcessGroup(cmd *exec.Cmd) error {
	return signalProcessGroup(cmd, syscall.SIGKILL)
}

func signalProcessGroup(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	// Setpgid makes the job the group leader, so its pid is the pgid even
	// after it has been reaped.
	err := syscall.Kill(-cmd.Process.Pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// exitStatus extracts the exit code from an exec.ExitError. interrupted is
// set when the process was terminated by SIGINT.
func exitStatus(exitErr *exec.ExitError) (code int, interrupted bool, ok bool) {
	ws, isWS := exitErr.Sys().(syscall.WaitStatus)
	if !isWS {
		return 0, false, false
	}
	if ws.Signaled() {
		return 128 + int(ws.Signal()), ws.Signal() == syscall.SIGINT, true
	}
	return ws.ExitStatus(), false, true
}

// isCommandNotFound reports whether err means the executable was not found.
// Only exec failures count; a missing job directory is a different error.
func isCommandNotFound(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var pathErr *fs.PathError
	return errors.As(err, &pathErr) && pathErr.Op == "fork/exec" && errors.Is(pathErr.Err, syscall.ENOENT)
}
