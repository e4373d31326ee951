// Package chunkset defines the Chunk record and the ordered, duplicate
// checked collection of chunks the discovery engine builds and the
// virtual file consumes.
package chunkset

import (
	"errors"
	"os"
	"slices"
	"sync"
)

// ErrDuplicateChunk is returned when a chunk's sequence number already
// exists in a Set.
var ErrDuplicateChunk = errors.New("duplicate chunk sequence number")

// Kind distinguishes the two on-disk source layouts a Chunk can come from.
type Kind int

const (
	// Scattered chunks are each their own file; Path names it and LocalFD
	// is nil until lazily opened.
	Scattered Kind = iota
	// BlockHeader chunks share one file descriptor per mountpoint,
	// referenced by DescIndex into the virtual file's descriptor pool.
	BlockHeader
)

// Chunk is one piece of a recording: its physical source, size,
// position within that source, and logical sequence number.
//
// LogicalOffset is zero until a virtual file assigns it (see
// internal/vfile); callers that only use chunkset directly (discovery,
// tests) should not read it before that assignment happens.
type Chunk struct {
	Sequence uint64
	Size     int64
	Kind     Kind

	// Path is the chunk's own file, set only for Scattered chunks.
	Path string
	// LocalFD is the lazily opened descriptor for a Scattered chunk.
	// Owned exclusively by this chunk; nil means "not open".
	LocalFD *os.File

	// DescIndex indexes into the owning virtual file's shared
	// descriptor pool, set only for BlockHeader chunks. A chunk never
	// owns this descriptor; it borrows it.
	DescIndex int
	// Position is the byte offset within the chunk's source where its
	// payload begins (0 for Scattered, past the block header for
	// BlockHeader).
	Position int64

	// LogicalOffset is the sum of sizes of all chunks with strictly
	// smaller Sequence, assigned once at virtual-file construction.
	LogicalOffset int64
}

// Set is an ordered, duplicate-free collection of chunks keyed by
// Sequence. All methods are safe for concurrent use; Sorted returns a
// point-in-time snapshot taken under the same lock as Insert.
type Set struct {
	mu     sync.Mutex
	chunks map[uint64]*Chunk
}

// New returns an empty Set.
func New() *Set {
	return &Set{chunks: make(map[uint64]*Chunk)}
}

// Insert adds c to the set. It returns ErrDuplicateChunk if a chunk
// with the same Sequence is already present.
func (s *Set) Insert(c *Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.chunks[c.Sequence]; exists {
		return ErrDuplicateChunk
	}
	s.chunks[c.Sequence] = c
	return nil
}

// Contains reports whether a chunk with the given sequence number is
// already present.
func (s *Set) Contains(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.chunks[seq]
	return ok
}

// Len returns the number of chunks currently in the set.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// Sorted returns the chunks in ascending Sequence order. Sparse
// sequence numbers are allowed; this only affects density, never the
// resulting logical stream's contiguity.
func (s *Set) Sorted() []*Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Chunk) int {
		switch {
		case a.Sequence < b.Sequence:
			return -1
		case a.Sequence > b.Sequence:
			return 1
		default:
			return 0
		}
	})
	return out
}
