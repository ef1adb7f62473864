//go:build windows

package ui

import (
	"io"
	"os"
)

func OpenTTY() (io.ReadWriteCloser, error) {
	return os.OpenFile("CON", os.O_RDWR, 0)
}
