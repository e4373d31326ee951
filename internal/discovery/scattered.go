package discovery

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"libvbs/internal/chunkset"
	"libvbs/internal/pathutil"
)

// discoverScattered implements spec.md §4.2.1. Mountpoints are scanned
// sequentially: each contributes its own independent <recording>/
// subdirectory, so there is no cross-mountpoint work to parallelize.
func discoverScattered(recordingName string, mountpoints []string, logger *slog.Logger) (*Result, error) {
	pattern := regexp.MustCompile(`^` + pathutil.Escape(recordingName) + `\.([0-9]{8})$`)
	chunks := chunkset.New()

	for _, mp := range mountpoints {
		recDir := filepath.Join(mp, recordingName)
		info, statErr := os.Lstat(recDir)
		if skipMountpointEntry(recDir, info, statErr, true, logger) {
			continue
		}

		entries, err := os.ReadDir(recDir)
		if err != nil {
			logger.Warn("failed to read recording directory", "dir", recDir, "error", err)
			continue
		}

		for _, entry := range entries {
			m := pattern.FindStringSubmatch(entry.Name())
			if m == nil {
				continue
			}
			seq, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil {
				// Regex already constrained this to 8 decimal digits;
				// this can't happen, but never trust a parse blindly.
				logger.Warn("unparsable sequence suffix", "name", entry.Name(), "error", err)
				continue
			}

			path := filepath.Join(recDir, entry.Name())
			size, err := scatteredFileSize(path)
			if err != nil {
				logger.Warn("failed to size chunk file", "path", path, "error", err)
				continue
			}

			c := &chunkset.Chunk{
				Sequence: seq,
				Size:     size,
				Kind:     chunkset.Scattered,
				Path:     path,
				Position: 0,
			}
			if err := chunks.Insert(c); err != nil {
				return nil, fmt.Errorf("mountpoint %s: chunk %d: %w", mp, seq, err)
			}
		}
	}

	return &Result{Chunks: chunks}, nil
}

// scatteredFileSize opens, seeks to end, and closes, per spec.md
// §4.2.1 step 3 — equivalent to a stat but expressed as the spec's own
// open/seek/close algorithm.
func scatteredFileSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	return size, nil
}
