package dump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBinaryTruncatesToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mem.bin")
	mem := make([]byte, 65536)
	mem[0] = 0xAA
	mem[99] = 0xBB
	require.NoError(t, WriteBinary(path, mem, 100))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 100)
	assert.Equal(t, uint8(0xAA), data[0])
	assert.Equal(t, uint8(0xBB), data[99])
}

func TestWriteHexProducesValidChecksums(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mem.hex")
	mem := []byte{0x01, 0x02, 0x03, 0x04}
	require.NoError(t, WriteHex(path, mem, len(mem)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], ":04000000"))
	assert.True(t, strings.HasSuffix(lines[1], "FF"))
	assertHexChecksum(t, lines[0])
	assertHexChecksum(t, lines[1])
}

func assertHexChecksum(t *testing.T, rec string) {
	t.Helper()
	require.True(t, strings.HasPrefix(rec, ":"))
	bytes := make([]byte, 0)
	for i := 1; i+1 < len(rec); i += 2 {
		var b int
		_, err := sscanfHex(rec[i:i+2], &b)
		require.NoError(t, err)
		bytes = append(bytes, byte(b))
	}
	var sum uint8
	for _, b := range bytes {
		sum += b
	}
	assert.Equal(t, uint8(0), sum)
}

func sscanfHex(s string, out *int) (int, error) {
	v := 0
	for _, c := range s {
		v *= 16
		switch {
		case c >= '0' && c <= '9':
			v += int(c - '0')
		case c >= 'A' && c <= 'F':
			v += int(c-'A') + 10
		}
	}
	*out = v
	return 1, nil
}
