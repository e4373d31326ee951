package discovery

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"libvbs/internal/blockfmt"
	"libvbs/internal/chunkset"
)

// workerResult is one mountpoint's worth of block-header scanning: the
// mountpoint's local chunks plus the file descriptor they borrow from.
// Terminal errors are returned alongside it by scanBlockHeaderMountpoint,
// and a mountpoint that simply doesn't carry the recording (missing
// file, bad sync word) yields a nil *workerResult and a nil error.
type workerResult struct {
	mountpoint string
	chunks     []*chunkset.Chunk
	file       *os.File
}

// discoverBlockHeader implements spec.md §4.2.2. Each mountpoint owns one
// recording file, so mountpoints are scanned in parallel; the results are
// merged afterward under a single lock, since only the merge step needs
// to reason about chunks from more than one mountpoint at a time.
func discoverBlockHeader(recordingName string, mountpoints []string, logger *slog.Logger) (*Result, error) {
	results := make([]*workerResult, len(mountpoints))

	g := new(errgroup.Group)
	for i, mp := range mountpoints {
		i, mp := i, mp
		g.Go(func() error {
			wr, err := scanBlockHeaderMountpoint(mp, recordingName, logger)
			if err != nil {
				return fmt.Errorf("mountpoint %s: %w", mp, err)
			}
			results[i] = wr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// A terminal error in any one worker invalidates the whole
		// recording; close every descriptor any worker managed to open
		// before returning.
		for _, wr := range results {
			if wr != nil && wr.file != nil {
				_ = wr.file.Close()
			}
		}
		return nil, err
	}

	chunks := chunkset.New()
	var descriptors []*os.File
	owner := make(map[uint64]string)
	for _, wr := range results {
		if wr == nil || wr.file == nil {
			continue
		}
		descIndex := len(descriptors)
		descriptors = append(descriptors, wr.file)
		for _, c := range wr.chunks {
			c.DescIndex = descIndex
			if err := chunks.Insert(c); err != nil {
				logger.Warn("duplicate chunk across mountpoints, skipping",
					"mountpoint", wr.mountpoint, "sequence", c.Sequence, "kept_from", owner[c.Sequence])
				continue
			}
			owner[c.Sequence] = wr.mountpoint
		}
	}

	return &Result{Chunks: chunks, Descriptors: descriptors}, nil
}

// scanBlockHeaderMountpoint reads recordingName's file under mp, if it
// exists and carries the block-header format, and returns the chunks it
// contains along with the open descriptor those chunks reference. A
// missing file or one that fails the file-header check is reported as
// (nil, nil): not a failure of this mountpoint, just "not here".
func scanBlockHeaderMountpoint(mp, recordingName string, logger *slog.Logger) (*workerResult, error) {
	path := filepath.Join(mp, recordingName)
	info, statErr := os.Lstat(path)
	if skipMountpointEntry(path, info, statErr, false, logger) {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("failed to open recording file", "path", path, "error", err)
		return nil, nil
	}

	fileHeaderBuf := make([]byte, blockfmt.FileHeaderSize)
	if _, err := io.ReadFull(f, fileHeaderBuf); err != nil {
		_ = f.Close()
		logger.Warn("failed to read file header", "path", path, "error", err)
		return nil, nil
	}
	if _, err := blockfmt.DecodeFileHeader(fileHeaderBuf); err != nil {
		_ = f.Close()
		if errors.Is(err, blockfmt.ErrBadFileHeader) {
			return nil, nil
		}
		return nil, err
	}

	var chunks []*chunkset.Chunk
	seen := make(map[uint64]bool)
	position := int64(blockfmt.FileHeaderSize)
	blockHeaderBuf := make([]byte, blockfmt.BlockHeaderSize)

	for {
		if _, err := io.ReadFull(f, blockHeaderBuf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			_ = f.Close()
			return nil, fmt.Errorf("reading block header at offset %d: %w", position, err)
		}

		bh, err := blockfmt.DecodeBlockHeader(blockHeaderBuf)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("block header at offset %d: %w", position, err)
		}

		seq := uint64(bh.BlockNumber)
		if seen[seq] {
			_ = f.Close()
			return nil, fmt.Errorf("%w: block %d", chunkset.ErrDuplicateChunk, seq)
		}
		seen[seq] = true

		chunks = append(chunks, &chunkset.Chunk{
			Sequence: seq,
			Size:     bh.PayloadSize(),
			Kind:     chunkset.BlockHeader,
			Position: position + blockfmt.BlockHeaderSize,
		})

		next := position + int64(bh.WholeBlockSize)
		if _, err := f.Seek(next, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("seeking past block %d: %w", seq, err)
		}
		position = next
	}

	return &workerResult{mountpoint: mp, chunks: chunks, file: f}, nil
}
