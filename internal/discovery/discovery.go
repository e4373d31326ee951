// Package discovery locates and classifies the pieces of a recording
// across a set of mountpoints, in either of the two on-disk layouts
// (spec.md §4.2), and assembles them into an ordered chunk set.
package discovery

import (
	"errors"
	"log/slog"
	"os"

	"libvbs/internal/chunkset"
	"libvbs/internal/logging"
)

// Layout selects which on-disk format to scan for.
type Layout int

const (
	// Scattered recordings are one file per chunk under
	// <mountpoint>/<recording>/.
	Scattered Layout = iota
	// BlockHeader recordings are one file per mountpoint, internally
	// divided into header-prefixed blocks.
	BlockHeader
)

func (l Layout) String() string {
	switch l {
	case Scattered:
		return "scattered"
	case BlockHeader:
		return "block-header"
	default:
		return "unknown"
	}
}

// Result is the output of a discovery scan: the ordered chunk set plus
// any shared file descriptors the virtual file must take ownership of
// (BlockHeader chunks borrow from this pool; Scattered discovery always
// returns an empty pool since those chunks own their own descriptors
// lazily).
type Result struct {
	Chunks      *chunkset.Set
	Descriptors []*os.File
}

// Discover runs the strategy selected by layout over mountpoints
// looking for recordingName. It may return a Result with zero chunks
// and a nil error: an empty result is reported as an error by
// the caller (spec.md §4.2.3), not by this package, since "no chunks
// found" isn't itself a failure of any one strategy.
func Discover(recordingName string, mountpoints []string, layout Layout, logger *slog.Logger) (*Result, error) {
	logger = logging.Default(logger).With("component", "discovery", "layout", layout.String())

	switch layout {
	case Scattered:
		return discoverScattered(recordingName, mountpoints, logger)
	case BlockHeader:
		return discoverBlockHeader(recordingName, mountpoints, logger)
	default:
		return nil, errors.New("discovery: unknown layout")
	}
}

// skipMountpointEntry decides, given the result of an lstat on a
// per-mountpoint path, whether the caller should silently move on to
// the next mountpoint. ENOENT and "wrong type" are silent; any other
// stat error is logged and also causes a skip, but discovery as a
// whole continues (spec.md §4.2.1 step 1, §4.2.2 step 1, §9 Open
// Question).
func skipMountpointEntry(path string, info os.FileInfo, statErr error, wantDir bool, logger *slog.Logger) bool {
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return true
		}
		logger.Warn("failed to stat mountpoint entry", "path", path, "error", statErr)
		return true
	}
	if wantDir && !info.IsDir() {
		return true
	}
	if !wantDir && !info.Mode().IsRegular() {
		return true
	}
	return false
}
