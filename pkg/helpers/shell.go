package helpers

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// ShellCommand builds a command that runs cmdline through the platform
// shell (sh -c, or cmd /C on windows), so configured recorder and player
// commands can use pipes and quoting. Occurrences of placeholder in cmdline
// are replaced by arg; when placeholder is absent, arg is appended. arg is
// quoted for that shell.
func ShellCommand(ctx context.Context, cmdline string, placeholder string, arg string) (*exec.Cmd, error) {
	cmdline = strings.TrimSpace(cmdline)
	if cmdline == "" {
		return nil, errors.New("empty command")
	}

	if placeholder != "" && arg != "" {
		if strings.Contains(cmdline, placeholder) {
			cmdline = strings.ReplaceAll(cmdline, placeholder, ShellQuote(arg))
		} else {
			cmdline = cmdline + " " + ShellQuote(arg)
		}
	}

	return shellCommand(ctx, cmdline), nil
}

// ShellQuote quotes s as a single argument for the platform shell.
func ShellQuote(s string) string {
	if runtime.GOOS == "windows" {
		return quoteCmd(s)
	}
	return quotePOSIX(s)
}

func quotePOSIX(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// quoteCmd double-quotes s for cmd.exe. cmd has no escape inside quotes,
// an embedded quote is doubled, which the usual argv parsers read back as
// one quote. %VAR% expansion is not suppressed.
func quoteCmd(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
