//go:build !windows

package ui

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tty")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	rw, err := openTerminal(path)
	require.NoError(t, err)
	_, err = rw.Write([]byte("Delete \"Chat 2\"? [y/n]"))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Delete \"Chat 2\"? [y/n]", string(b))

	_, err = openTerminal(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "no terminal at")
}
