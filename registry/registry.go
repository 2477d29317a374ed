// Package registry implements the FileRegistry: the host-side table of
// open files a guest FCB is bound to via a 16-bit ID/XOR tamper tag
// stashed in the FCB's reserved bytes, rather than by path.
package registry

import (
	"fmt"
	"log/slog"
	"os"
)

// Entry is one open host file and the bookkeeping needed to detect a
// guest using a stale or forged FCB.
type Entry struct {
	ID      uint16
	File    *os.File
	Path    string
	ReadOnly bool
	Written bool
}

// Registry is a collection (a map) of open Entries keyed by ID. IDs are
// drawn from a monotonically increasing counter that wraps at 65535,
// skipping 0 (reserved as "not open") and any ID still live.
type Registry struct {
	entries map[uint16]*Entry
	next    uint16
	log     *slog.Logger
}

// New returns an empty Registry. log may be nil, in which case
// teardown warnings are discarded.
func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 100}))
	}
	return &Registry{entries: make(map[uint16]*Entry), log: log}
}

// Open allocates a fresh ID for f and returns the Entry, or an error if
// the registry is exhausted (65535 simultaneously open files — in
// practice unreachable, since CP/M guests rarely hold more than a
// handful open at once).
func (r *Registry) Open(f *os.File, path string, readOnly bool) (*Entry, error) {
	id, err := r.allocID()
	if err != nil {
		return nil, err
	}
	e := &Entry{ID: id, File: f, Path: path, ReadOnly: readOnly}
	r.entries[id] = e
	return e, nil
}

func (r *Registry) allocID() (uint16, error) {
	start := r.next
	for {
		r.next++
		if r.next == 0 {
			r.next = 1
		}
		if _, taken := r.entries[r.next]; !taken {
			return r.next, nil
		}
		if r.next == start {
			return 0, fmt.Errorf("registry: no free file IDs")
		}
	}
}

// Lookup returns the Entry for id, or nil if it is not open.
func (r *Registry) Lookup(id uint16) *Entry {
	return r.entries[id]
}

// Close closes and forgets the Entry for id. It is not an error to close
// an unknown ID; the caller's FCB-ID protocol violation is reported
// separately (machine.ErrLogic), this just no-ops.
func (r *Registry) Close(id uint16) error {
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	delete(r.entries, id)
	return e.File.Close()
}

// CloseAll closes every still-open entry, logging a warning for any that
// were written to but never explicitly closed by the guest — a common
// sign of a guest that crashed or was killed mid-write.
func (r *Registry) CloseAll() {
	for id, e := range r.entries {
		if e.Written {
			r.log.Warn("file written but never closed", "path", e.Path, "id", id)
		}
		e.File.Close()
		delete(r.entries, id)
	}
}

// Len reports how many files are currently open.
func (r *Registry) Len() int {
	return len(r.entries)
}
