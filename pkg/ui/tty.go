//go:build !windows

package ui

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

const ttyPath = "/dev/tty"

// OpenTTY opens the controlling terminal for TTYPrompter. `parlante
// sessions rename|delete` may run with stdin redirected, the answer is
// still read from the terminal.
func OpenTTY() (io.ReadWriteCloser, error) {
	return openTerminal(ttyPath)
}

func openTerminal(path string) (io.ReadWriteCloser, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "no terminal at %s to prompt on", path)
	}
	return f, nil
}
