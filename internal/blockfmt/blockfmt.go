// Package blockfmt decodes the fixed-size headers of the block-header
// on-disk recording format (spec.md §6.2): one file header per
// mountpoint file, followed by a sequence of block headers each
// immediately preceding that block's payload.
//
// The layout is fixed by the producer (the data acquisition backend)
// and is only ever read here, never written.
package blockfmt

import (
	"encoding/binary"
	"errors"
	"io"
)

// SyncWord is the magic value that must open every block-header
// recording file. A mismatch means the file predates this format or
// belongs to something else entirely; the caller treats it as "not in
// this format" and skips silently rather than erroring.
const SyncWord uint64 = 0xfeed6666feed6666

// Version is the only block-header format version this package
// understands.
const Version int32 = 2

// FileHeaderSize is the fixed size, in bytes, of the leading file
// header. Fields beyond SyncWord and Version exist on disk but are not
// consulted by this package.
const FileHeaderSize = 32

// BlockHeaderSize is the fixed size, in bytes, of each block header.
const BlockHeaderSize = 8

var (
	// ErrBadFileHeader means the sync word or version didn't match;
	// the caller should skip this file rather than fail discovery.
	ErrBadFileHeader = errors.New("blockfmt: sync word or version mismatch")
	// ErrCorruptBlockHeader means a block header's own fields are
	// invalid (negative block number or non-positive size); this is
	// terminal for the recording being opened.
	ErrCorruptBlockHeader = errors.New("blockfmt: corrupt block header")
)

// FileHeader is the leading header of a block-header recording file.
type FileHeader struct {
	SyncWord uint64
	Version  int32
}

// DecodeFileHeader reads and validates a FileHeaderSize-byte buffer.
func DecodeFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) < FileHeaderSize {
		return FileHeader{}, io.ErrUnexpectedEOF
	}
	h := FileHeader{
		SyncWord: binary.LittleEndian.Uint64(buf[0:8]),
		Version:  int32(binary.LittleEndian.Uint32(buf[8:12])), //nolint:gosec // value space fits int32 by construction
	}
	if h.SyncWord != SyncWord || h.Version != Version {
		return FileHeader{}, ErrBadFileHeader
	}
	return h, nil
}

// BlockHeader precedes every block's payload. BlockNumber becomes the
// chunk's sequence number; WholeBlockSize is the total length of this
// block, header included, so the next block header starts exactly
// WholeBlockSize bytes after this one.
type BlockHeader struct {
	BlockNumber    int32
	WholeBlockSize int32
}

// DecodeBlockHeader reads and validates a BlockHeaderSize-byte buffer.
// A negative BlockNumber or non-positive WholeBlockSize is
// ErrCorruptBlockHeader.
func DecodeBlockHeader(buf []byte) (BlockHeader, error) {
	if len(buf) < BlockHeaderSize {
		return BlockHeader{}, io.ErrUnexpectedEOF
	}
	h := BlockHeader{
		BlockNumber:    int32(binary.LittleEndian.Uint32(buf[0:4])), //nolint:gosec // round-trips a producer-written int32
		WholeBlockSize: int32(binary.LittleEndian.Uint32(buf[4:8])), //nolint:gosec // round-trips a producer-written int32
	}
	if h.BlockNumber < 0 || h.WholeBlockSize <= 0 {
		return BlockHeader{}, ErrCorruptBlockHeader
	}
	return h, nil
}

// PayloadSize returns the number of payload bytes following this block
// header.
func (h BlockHeader) PayloadSize() int64 {
	return int64(h.WholeBlockSize) - BlockHeaderSize
}
