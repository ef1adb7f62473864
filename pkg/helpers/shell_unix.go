//go:build !windows

package helpers

import (
	"context"
	"os/exec"
)

func shellCommand(ctx context.Context, cmdline string) *exec.Cmd {
	return exec.CommandContext(ctx, "/bin/sh", "-c", cmdline)
}
