// Package handletable assigns and tracks the integer handles the public
// API hands back to callers in place of a pointer, and guards the mapping
// from handle to open virtual file with a readers-writer lock (spec.md §3).
package handletable

import (
	"errors"
	"sync"

	"libvbs/internal/vfile"
)

// FirstHandle is the handle assigned to the first file ever opened in a
// Table. Subsequent handles descend from there, so handle values
// carry no meaning beyond uniqueness and are never reused while their
// file is open.
const FirstHandle int64 = -1

// ErrUnknownHandle is returned by Get and Close for a
// handle the table doesn't recognize — already closed, or never issued.
var ErrUnknownHandle = errors.New("handletable: unknown handle")

// Table maps open handles to their virtual files. The zero Table is
// ready to use.
type Table struct {
	mu      sync.RWMutex
	files   map[int64]*vfile.File
	nextLow int64 // the lowest handle issued so far; see Open
	issued  bool
}

// Open registers f under a freshly allocated handle and returns it.
// Handles descend: the table starts at FirstHandle and each subsequent
// Open allocates one less than the smallest handle ever issued, so a
// handle is never reused for the lifetime of the Table even after its
// file is closed.
func (t *Table) Open(f *vfile.File) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.files == nil {
		t.files = make(map[int64]*vfile.File)
	}

	var handle int64
	if !t.issued {
		handle = FirstHandle
		t.issued = true
	} else {
		handle = t.nextLow - 1
	}
	t.nextLow = handle
	t.files[handle] = f
	return handle
}

// Get returns the file registered under handle.
func (t *Table) Get(handle int64) (*vfile.File, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	f, ok := t.files[handle]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return f, nil
}

// Close removes handle from the table and closes its underlying file.
// The handle is never reassigned, so a caller holding a copy of a closed
// handle reliably gets ErrUnknownHandle rather than silently operating
// on an unrelated, later file.
func (t *Table) Close(handle int64) error {
	t.mu.Lock()
	f, ok := t.files[handle]
	if !ok {
		t.mu.Unlock()
		return ErrUnknownHandle
	}
	delete(t.files, handle)
	t.mu.Unlock()

	return f.Close()
}

// Len returns the number of currently open handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.files)
}
