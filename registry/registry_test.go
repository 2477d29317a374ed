package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *os.File {
	t.Helper()
	f, err := os.Create(filepath.Join(t.TempDir(), "x"))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestOpenAssignsNonZeroIDs(t *testing.T) {
	r := New(nil)
	e1, err := r.Open(openTemp(t), "a", false)
	require.NoError(t, err)
	e2, err := r.Open(openTemp(t), "b", false)
	require.NoError(t, err)

	assert.NotEqual(t, uint16(0), e1.ID)
	assert.NotEqual(t, uint16(0), e2.ID)
	assert.NotEqual(t, e1.ID, e2.ID)
	assert.Equal(t, 2, r.Len())
}

func TestLookupAndClose(t *testing.T) {
	r := New(nil)
	e, err := r.Open(openTemp(t), "a", false)
	require.NoError(t, err)

	assert.Same(t, e, r.Lookup(e.ID))
	require.NoError(t, r.Close(e.ID))
	assert.Nil(t, r.Lookup(e.ID))
	assert.Equal(t, 0, r.Len())
}

func TestCloseUnknownIDIsNoop(t *testing.T) {
	r := New(nil)
	assert.NoError(t, r.Close(999))
}

func TestCloseAllClearsRegistry(t *testing.T) {
	r := New(nil)
	_, err := r.Open(openTemp(t), "a", false)
	require.NoError(t, err)
	_, err = r.Open(openTemp(t), "b", false)
	require.NoError(t, err)

	r.CloseAll()
	assert.Equal(t, 0, r.Len())
}

func TestOpenAfterCloseAssignsNonZeroID(t *testing.T) {
	r := New(nil)
	e, err := r.Open(openTemp(t), "a", false)
	require.NoError(t, err)
	require.NoError(t, r.Close(e.ID))

	e2, err := r.Open(openTemp(t), "b", false)
	require.NoError(t, err)
	assert.NotEqual(t, uint16(0), e2.ID)
}
