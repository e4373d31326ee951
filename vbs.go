// Package vbs presents a scattered, multi-disk VLBI recording as a
// single logically contiguous byte stream. Callers open a recording by
// name across a set of mountpoints and get back an integer handle; Read,
// Seek, Stat, and Close all operate on that handle, mirroring a POSIX
// file descriptor so the package can sit behind a command interpreter
// that itself speaks in those terms.
package vbs

import (
	"errors"
	"io"
	"log/slog"
	"syscall"

	"libvbs/internal/blockfmt"
	"libvbs/internal/chunkset"
	"libvbs/internal/discovery"
	"libvbs/internal/handletable"
	"libvbs/internal/vfile"
)

// Layout selects which on-disk recording format Open scans for.
type Layout = discovery.Layout

const (
	// Scattered recordings are one file per chunk under
	// <mountpoint>/<recording>/.
	Scattered = discovery.Scattered
	// BlockHeader recordings are one file per mountpoint, internally
	// divided into header-prefixed blocks.
	BlockHeader = discovery.BlockHeader
)

// Sentinel errors returned by this package's public functions. Each one
// is also reachable through its POSIX errno via Errno, for callers that
// need to report failures the way the recordings' own command
// interpreter does.
var (
	ErrInvalidArgument    = errors.New("vbs: invalid argument")
	ErrBadHandle          = errors.New("vbs: bad handle")
	ErrNotFound           = errors.New("vbs: recording not found on any mountpoint")
	ErrDuplicateChunk     = chunkset.ErrDuplicateChunk
	ErrCorruptBlockHeader = blockfmt.ErrCorruptBlockHeader
	ErrIOError            = errors.New("vbs: i/o error")
)

var table handletable.Table

// Open locates recordingName across mountpoints in the given layout and
// returns a handle for it. Finding zero chunks is reported as
// ErrNotFound, not as a zero-length successful open (spec.md §4.2.3):
// an empty recording and a missing one are indistinguishable from the
// caller's side, and both should fail the same way.
func Open(recordingName string, mountpoints []string, layout Layout, logger *slog.Logger) (int64, error) {
	if recordingName == "" {
		return 0, ErrInvalidArgument
	}
	if len(mountpoints) == 0 {
		return 0, ErrInvalidArgument
	}

	result, err := discovery.Discover(recordingName, mountpoints, layout, logger)
	if err != nil {
		return 0, mapDiscoveryError(err)
	}
	if result.Chunks.Len() == 0 {
		return 0, ErrNotFound
	}

	f := vfile.Open(result, logger)
	return table.Open(f), nil
}

// Read reads up to len(buf) bytes from handle's current position into
// buf, advancing it, and returns the number of bytes read. Read returns
// io.EOF once the cursor is at or past the recording's size.
func Read(handle int64, buf []byte) (int, error) {
	f, err := table.Get(handle)
	if err != nil {
		return 0, ErrBadHandle
	}
	n, err := f.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, mapIOError(err)
	}
	return n, err
}

// Seek repositions handle's cursor per whence (io.SeekStart,
// io.SeekCurrent, io.SeekEnd) and returns the resulting offset.
func Seek(handle int64, offset int64, whence int) (int64, error) {
	f, err := table.Get(handle)
	if err != nil {
		return 0, ErrBadHandle
	}
	n, err := f.Seek(offset, whence)
	if err != nil {
		return 0, ErrInvalidArgument
	}
	return n, nil
}

// Close releases handle and every descriptor its virtual file owns.
// After Close, handle is never valid again even though its integer
// value is never reassigned.
func Close(handle int64) error {
	if err := table.Close(handle); err != nil {
		return ErrBadHandle
	}
	return nil
}

// Info is a point-in-time snapshot of an open handle's state, returned
// by Stat. It exists to let a caller (or the cmd/vbscat CLI) introspect
// a handle without threading size and position through its own state.
type Info struct {
	Size      int64
	Position  int64
	NumChunks int
}

// Stat returns handle's current size, cursor position, and chunk count.
func Stat(handle int64) (Info, error) {
	f, err := table.Get(handle)
	if err != nil {
		return Info{}, ErrBadHandle
	}
	return Info{
		Size:      f.Size(),
		Position:  f.Position(),
		NumChunks: f.NumChunks(),
	}, nil
}

func mapDiscoveryError(err error) error {
	switch {
	case errors.Is(err, chunkset.ErrDuplicateChunk):
		return ErrDuplicateChunk
	case errors.Is(err, blockfmt.ErrCorruptBlockHeader):
		return ErrCorruptBlockHeader
	default:
		return ErrIOError
	}
}

func mapIOError(err error) error {
	return ErrIOError
}

// Errno maps an error returned by this package's public functions to the
// POSIX errno a C-style caller expects, for callers embedding vbs behind
// an interpreter that reports failures as errno values rather than Go
// errors.
func Errno(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrInvalidArgument):
		return syscall.EINVAL
	case errors.Is(err, ErrBadHandle):
		return syscall.EBADF
	case errors.Is(err, ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, io.EOF):
		return 0
	default:
		return syscall.EIO
	}
}
