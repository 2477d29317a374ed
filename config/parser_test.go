package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cpmemu.cfg")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadParsesDriveAndConsoleDirectives(t *testing.T) {
	path := writeConfig(t, `
# sample config
console vt52
lines 25
columns 80
drive A = "/tmp/a" readonly
drive B = "/tmp/b"
default drive B
loglevel 2
cpu delay 500
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ConsoleVT52, c.Console)
	assert.Equal(t, 25, c.Lines)
	assert.Equal(t, "/tmp/a", c.Drives[0].Path)
	assert.True(t, c.Drives[0].ReadOnly)
	assert.Equal(t, "/tmp/b", c.Drives[1].Path)
	assert.Equal(t, 1, c.DefaultDrive)
	assert.Equal(t, 2, c.LogLevel)
	assert.Equal(t, 500, c.CPUDelayMicros)
}

func TestLoadRejectsUnknownDirective(t *testing.T) {
	path := writeConfig(t, "bogus thing\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadHandlesQuotedPathsWithSpaces(t *testing.T) {
	path := writeConfig(t, `drive C = "/tmp/my drive"`+"\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/my drive", c.Drives[2].Path)
}

func TestLoadHexAndOctalNumbers(t *testing.T) {
	path := writeConfig(t, "char 0x41 0101\nunprintable 0x2E\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rune(0101), c.ExtraChar[0x41])
	assert.Equal(t, rune(0x2E), c.Unprintable)
}
