//go:build unix

package procexec

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup starts the child in its own process group so termination
// reaches helpers it spawns (ffmpeg merges, for example).
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interruptGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, unix.SIGTERM)
}

func killGroup(cmd *exec.Cmd) error {
	return signalGroup(cmd, unix.SIGKILL)
}

func signalGroup(cmd *exec.Cmd, sig unix.Signal) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if err := unix.Kill(-pid, sig); err != nil {
		if err == unix.ESRCH {
			return nil
		}
		// Fall back to the leader alone when the group is already gone.
		return unix.Kill(pid, sig)
	}
	return nil
}
