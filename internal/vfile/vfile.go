// Package vfile presents an ordered chunkset.Set as one logically
// contiguous, seekable byte stream: it assigns each chunk's logical
// offset, tracks a cursor, and satisfies reads by locating the chunk(s)
// the cursor currently falls in and reading from their physical source.
package vfile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"libvbs/internal/chunkset"
	"libvbs/internal/discovery"
	"libvbs/internal/logging"
)

// ErrNegativePosition is returned by Seek when the resulting offset
// would be negative.
var ErrNegativePosition = errors.New("vfile: resulting position would be negative")

// File is a virtual, logically contiguous view over a recording's
// chunks. Each method holds the File's own mutex for its duration, so
// calls on one *File are serialized; they all share a single cursor.
type File struct {
	chunks      []*chunkset.Chunk
	totalSize   int64
	descriptors []*os.File

	position int64
	logger   *slog.Logger

	mu sync.Mutex
}

// Open builds a File from a discovery result. Chunks are sorted and
// assigned contiguous logical offsets in Sequence order; ownership of
// result's shared descriptor pool transfers to the returned File, which
// releases it on Close.
func Open(result *discovery.Result, logger *slog.Logger) *File {
	logger = logging.Default(logger).With("component", "vfile")

	sorted := result.Chunks.Sorted()
	var offset int64
	for _, c := range sorted {
		c.LogicalOffset = offset
		offset += c.Size
	}

	return &File{
		chunks:      sorted,
		totalSize:   offset,
		descriptors: result.Descriptors,
		logger:      logger,
	}
}

// Size returns the total logical length of the recording.
func (f *File) Size() int64 {
	return f.totalSize
}

// NumChunks returns the number of chunks making up the recording.
func (f *File) NumChunks() int {
	return len(f.chunks)
}

// Position returns the current cursor position.
func (f *File) Position() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

// Seek repositions the cursor per whence (io.SeekStart, io.SeekCurrent,
// io.SeekEnd), exactly like os.File.Seek: the result may legally exceed
// Size (a subsequent Read then reports io.EOF immediately), but it may
// never go negative. If the new position lands in a different chunk
// than the old one, the old chunk's lazily opened scattered descriptor
// (if any) is closed, per spec.md §4.4.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = f.position + offset
	case io.SeekEnd:
		next = f.totalSize + offset
	default:
		return 0, fmt.Errorf("vfile: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, ErrNegativePosition
	}

	if next != f.position {
		oldIdx := f.chunkIndexForOffset(f.position)
		newIdx := f.chunkIndexForOffset(next)
		if oldIdx >= 0 && oldIdx != newIdx {
			f.releaseScatteredFD(f.chunks[oldIdx])
		}
	}

	f.position = next
	return next, nil
}

// Read fills buf starting at the current cursor, advancing it by the
// number of bytes read. It returns io.EOF once the cursor is at or past
// Size; a read that starts before Size but would run past it is
// truncated to the available bytes, per standard io.Reader semantics
// (a short read is not itself an error).
func (f *File) Read(buf []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.position >= f.totalSize {
		return 0, io.EOF
	}
	if len(buf) == 0 {
		return 0, nil
	}

	var total int
	for total < len(buf) && f.position < f.totalSize {
		idx := f.chunkIndexForOffset(f.position)
		if idx < 0 {
			break
		}
		c := f.chunks[idx]
		withinChunk := f.position - c.LogicalOffset
		want := len(buf) - total
		available := c.Size - withinChunk
		if int64(want) > available {
			want = int(available)
		}

		n, err := f.readChunk(c, withinChunk, buf[total:total+want])
		total += n
		f.position += int64(n)
		if f.position >= c.LogicalOffset+c.Size {
			// Cursor has left c for good (until a later Seek back into
			// it); release its lazily opened descriptor now rather than
			// waiting for Close, so a sequential read never holds more
			// than one scattered chunk's fd open at a time.
			f.releaseScatteredFD(c)
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			// A chunk that reports a size it can't actually deliver
			// (truncated on disk) would otherwise spin forever.
			return total, io.ErrUnexpectedEOF
		}
	}
	return total, nil
}

// releaseScatteredFD closes and clears c's lazily opened local
// descriptor if c is a Scattered chunk with one open. A no-op for
// BlockHeader chunks, which never own a descriptor, and for a
// Scattered chunk that was never opened.
func (f *File) releaseScatteredFD(c *chunkset.Chunk) {
	if c.Kind != chunkset.Scattered || c.LocalFD == nil {
		return
	}
	if err := c.LocalFD.Close(); err != nil {
		f.logger.Warn("failed to close chunk descriptor", "sequence", c.Sequence, "error", err)
	}
	c.LocalFD = nil
}

// chunkIndexForOffset returns the index of the chunk containing logical
// offset, or -1 if none does (only possible at or past totalSize).
func (f *File) chunkIndexForOffset(offset int64) int {
	i := sort.Search(len(f.chunks), func(i int) bool {
		return f.chunks[i].LogicalOffset+f.chunks[i].Size > offset
	})
	if i >= len(f.chunks) {
		return -1
	}
	return i
}

// readChunk reads into dst starting withinChunk bytes into c's payload,
// opening c's local descriptor lazily for Scattered chunks or using the
// shared pool descriptor for BlockHeader chunks.
func (f *File) readChunk(c *chunkset.Chunk, withinChunk int64, dst []byte) (int, error) {
	switch c.Kind {
	case chunkset.Scattered:
		if c.LocalFD == nil {
			fd, err := os.Open(c.Path)
			if err != nil {
				return 0, fmt.Errorf("opening chunk %d: %w", c.Sequence, err)
			}
			c.LocalFD = fd
		}
		return c.LocalFD.ReadAt(dst, c.Position+withinChunk)
	case chunkset.BlockHeader:
		if c.DescIndex < 0 || c.DescIndex >= len(f.descriptors) {
			return 0, fmt.Errorf("chunk %d: descriptor index %d out of range", c.Sequence, c.DescIndex)
		}
		return f.descriptors[c.DescIndex].ReadAt(dst, c.Position+withinChunk)
	default:
		return 0, fmt.Errorf("chunk %d: unknown kind %d", c.Sequence, c.Kind)
	}
}

// Close releases every descriptor this File owns: each Scattered chunk's
// lazily opened local descriptor, and the shared block-header pool. Each
// descriptor is closed exactly once: references are cleared as they are
// closed, so a second Close finds nothing left to close and returns nil.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, c := range f.chunks {
		if c.Kind == chunkset.Scattered && c.LocalFD != nil {
			if err := c.LocalFD.Close(); err != nil {
				errs = append(errs, err)
			}
			c.LocalFD = nil
		}
	}
	for _, d := range f.descriptors {
		if err := d.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.descriptors = nil

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
