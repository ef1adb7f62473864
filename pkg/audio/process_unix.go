//go:build !windows

package audio

import (
	"os/exec"
	"syscall"
)

// startInGroup makes the recorder the leader of its own process group, so
// that the shell wrapping it and everything it spawned can be signalled at
// once.
func startInGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interruptGroup(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
}

func killGroup(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
