//go:build windows

package helpers

import (
	"context"
	"os/exec"
	"syscall"
)

// cmd.exe parses its own command line, so it is passed verbatim instead of
// being re-escaped as a single argv entry.
func shellCommand(ctx context.Context, cmdline string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "cmd.exe")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: `cmd.exe /S /C "` + cmdline + `"`,
	}
	return cmd
}
