package procutil

import (
	"errors"
	"os/exec"
	"syscall"
)

// CmdExitCode returns the exit status of a finished command.  err is the
// value returned by cmd.Run or cmd.Wait.  -1 means the process never ran
// (typically the binary is not on $PATH).
func CmdExitCode(cmd *exec.Cmd, err error) int {
	if err == nil {
		if cmd.ProcessState == nil {
			return 0
		}
		if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok {
			return ws.ExitStatus()
		}
		return cmd.ProcessState.ExitCode()
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) {
		if ws, ok := exitError.Sys().(syscall.WaitStatus); ok {
			return ws.ExitStatus()
		}
		return exitError.ExitCode()
	}

	return -1
}
