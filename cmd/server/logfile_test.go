package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCappedLogKeepsNewestBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "worksreg.log")
	l, err := openCappedLog(path, 16, 8)
	require.NoError(t, err)

	_, err = l.Write([]byte("0123456789"))
	require.NoError(t, err)
	_, err = l.Write([]byte("abcdefghij"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "cdefghij", string(data))
}

func TestCappedLogTrimsOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worksreg.log")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 40), 0o644))

	l, err := openCappedLog(path, 32, 4)
	require.NoError(t, err)
	_, err = l.Write([]byte("y"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "xxxxy", string(data))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("warn").String())
	assert.Equal(t, "INFO", parseLogLevel("verbose").String())
}
