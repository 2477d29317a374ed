package fdos

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpmulate/cpmemu/registry"
)

func newTestFDOS(t *testing.T) (*FDOS, string) {
	t.Helper()
	dir := t.TempDir()
	drives := NewDrives()
	require.NoError(t, drives.Set(0, dir, false))
	reg := registry.New(slog.Default())
	return New(drives, reg), dir
}

func fcbFor(mem []byte, name, typ string) FCB {
	f := Wrap(mem, 0)
	f.SetDrive(0)
	copy(mem[1:9], padTo(name, 8))
	copy(mem[9:12], padTo(typ, 3))
	return f
}

func TestMakeThenOpenRoundTrip(t *testing.T) {
	fd, dir := newTestFDOS(t)
	mem := make([]byte, 64)
	f := fcbFor(mem, "HELLO", "TXT")

	res, fault := fd.Make(f)
	require.Nil(t, fault)
	assert.Equal(t, OK, res)
	assert.True(t, f.Valid())

	res, fault = fd.WriteSeq(f, []byte("0123456789"+string(make([]byte, 118))))
	require.Nil(t, fault)
	assert.Equal(t, OK, res)

	res, fault = fd.Close(f)
	require.Nil(t, fault)
	assert.Equal(t, OK, res)

	_, err := os.Stat(filepath.Join(dir, "hello.txt"))
	assert.NoError(t, err)

	f2 := fcbFor(mem, "HELLO", "TXT")
	res, fault = fd.Open(f2)
	require.Nil(t, fault)
	assert.Equal(t, OK, res)
	// Open leaves CR alone (WriteSeq advanced it to 1); a CP/M program
	// zeroes it itself before reading from the start.
	f2.SetCR(0)

	buf := make([]byte, 128)
	res, fault = fd.ReadSeq(f2, buf)
	require.Nil(t, fault)
	assert.Equal(t, OK, res)
	assert.Equal(t, "0123456789", string(buf[:10]))
}

func TestOpenMissingFileReturnsNotFound(t *testing.T) {
	fd, _ := newTestFDOS(t)
	mem := make([]byte, 64)
	f := fcbFor(mem, "NOPE", "TXT")
	res, fault := fd.Open(f)
	assert.Nil(t, fault)
	assert.Equal(t, NotFound, res)
}

func TestCloseWithTamperedIDIsLogicFault(t *testing.T) {
	fd, _ := newTestFDOS(t)
	mem := make([]byte, 64)
	f := fcbFor(mem, "X", "Y")
	_, fault := fd.Make(f)
	require.Nil(t, fault)

	mem[idOffset] ^= 0xFF // corrupt the stored ID

	_, fault = fd.Close(f)
	require.NotNil(t, fault)
	assert.Equal(t, "ErrLogic", fault.Reason)
}

func TestFindFirstWildcard(t *testing.T) {
	fd, dir := newTestFDOS(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.dat"), nil, 0644))

	mem := make([]byte, 64)
	f := fcbFor(mem, "????????", "TXT")
	var st SearchState
	res, name, fault := fd.FindFirst(f, &st)
	require.Nil(t, fault)
	require.Equal(t, OK, res)
	assert.Contains(t, []string{"a.txt", "b.txt"}, name)

	res, _, fault = fd.FindNext(&st)
	require.Nil(t, fault)
	assert.Equal(t, OK, res)

	res, _, fault = fd.FindNext(&st)
	require.Nil(t, fault)
	assert.Equal(t, NotFound, res)
}

func TestRandomIOSyncsSequentialPosition(t *testing.T) {
	fd, _ := newTestFDOS(t)
	mem := make([]byte, 64)
	f := fcbFor(mem, "R", "DAT")
	_, fault := fd.Make(f)
	require.Nil(t, fault)

	buf := make([]byte, 128)
	for i := range buf {
		buf[i] = 0x42
	}
	f.SetRandom(3)
	res, fault := fd.WriteRand(f, buf)
	require.Nil(t, fault)
	assert.Equal(t, OK, res)
	assert.Equal(t, uint8(3), f.CR())
	assert.Equal(t, uint8(0), f.Extent())
}
