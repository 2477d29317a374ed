package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmulate/cpmemu/machine"
)

func TestLoadSetsUpVectorsAndTail(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.com")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x00, 0xC9}, 0644))

	m := machine.New()
	require.NoError(t, Load(m, path, []string{"FOO.TXT", "bar"}))

	assert.Equal(t, uint16(0x0100), m.PC)
	assert.Equal(t, uint8(0xC3), m.ReadByte(0x0000))
	assert.Equal(t, uint8(0xC3), m.ReadByte(0x0005))
	assert.Equal(t, machine.MagicBase, m.ReadWord(0x0006))

	tailLen := m.ReadByte(0x0080)
	assert.Equal(t, uint8(len("FOO.TXT bar")), tailLen)

	assert.Equal(t, uint8(0xC9), m.Mem[0x0100+2])
}

func TestResolveHostPathAddsComExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "PROG.COM"), nil, 0644))

	path, err := ResolveHostPath(nil, filepath.Join(dir, "prog"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "PROG.COM"), path)
}
