//go:build windows

package audio

import (
	"os/exec"
)

func startInGroup(*exec.Cmd) {}

// there is no console interrupt for a child without a console of its own
func interruptGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func killGroup(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
