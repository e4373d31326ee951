package vbs_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"libvbs"
)

func writeScattered(t *testing.T, mountpoint, recording, suffix string, content []byte) {
	t.Helper()
	dir := filepath.Join(mountpoint, recording)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	name := filepath.Join(dir, recording+"."+suffix)
	if err := os.WriteFile(name, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenReadCloseScattered(t *testing.T) {
	mp := t.TempDir()
	writeScattered(t, mp, "exp001", "00000000", []byte("hello "))
	writeScattered(t, mp, "exp001", "00000001", []byte("world"))

	handle, err := vbs.Open("exp001", []string{mp}, vbs.Scattered, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		if err := vbs.Close(handle); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	buf := make([]byte, 64)
	n, err := vbs.Read(handle, buf)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "hello world" {
		t.Fatalf("unexpected contents: %q", buf[:n])
	}
}

func TestOpenNotFoundReturnsErrNotFound(t *testing.T) {
	mp := t.TempDir()
	_, err := vbs.Open("missing", []string{mp}, vbs.Scattered, nil)
	if !errors.Is(err, vbs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRejectsEmptyArguments(t *testing.T) {
	if _, err := vbs.Open("", []string{"/tmp"}, vbs.Scattered, nil); !errors.Is(err, vbs.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty name, got %v", err)
	}
	if _, err := vbs.Open("exp001", nil, vbs.Scattered, nil); !errors.Is(err, vbs.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for no mountpoints, got %v", err)
	}
}

func TestReadSeekOnBadHandleReturnsErrBadHandle(t *testing.T) {
	if _, err := vbs.Read(12345, make([]byte, 1)); !errors.Is(err, vbs.ErrBadHandle) {
		t.Fatalf("expected ErrBadHandle, got %v", err)
	}
	if _, err := vbs.Seek(12345, 0, io.SeekStart); !errors.Is(err, vbs.ErrBadHandle) {
		t.Fatalf("expected ErrBadHandle, got %v", err)
	}
	if err := vbs.Close(12345); !errors.Is(err, vbs.ErrBadHandle) {
		t.Fatalf("expected ErrBadHandle, got %v", err)
	}
}

func TestSeekThenReadRoundTrip(t *testing.T) {
	mp := t.TempDir()
	writeScattered(t, mp, "exp002", "00000000", []byte("0123456789"))

	handle, err := vbs.Open("exp002", []string{mp}, vbs.Scattered, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = vbs.Close(handle) }()

	if _, err := vbs.Seek(handle, 5, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 5)
	n, err := vbs.Read(handle, buf)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:n]) != "56789" {
		t.Fatalf("unexpected contents after seek: %q", buf[:n])
	}
}

func TestStatReportsSizeAndPosition(t *testing.T) {
	mp := t.TempDir()
	writeScattered(t, mp, "exp003", "00000000", []byte("abcdef"))

	handle, err := vbs.Open("exp003", []string{mp}, vbs.Scattered, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = vbs.Close(handle) }()

	info, err := vbs.Stat(handle)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size != 6 || info.Position != 0 || info.NumChunks != 1 {
		t.Fatalf("unexpected info: %+v", info)
	}

	if _, err := vbs.Seek(handle, 3, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	info, err = vbs.Stat(handle)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Position != 3 {
		t.Fatalf("expected Position == 3 after seek, got %d", info.Position)
	}
}

func TestHandlesAreUniqueAcrossOpens(t *testing.T) {
	mp := t.TempDir()
	writeScattered(t, mp, "exp004", "00000000", []byte("x"))
	writeScattered(t, mp, "exp005", "00000000", []byte("y"))

	h1, err := vbs.Open("exp004", []string{mp}, vbs.Scattered, nil)
	if err != nil {
		t.Fatalf("Open exp004: %v", err)
	}
	defer func() { _ = vbs.Close(h1) }()

	h2, err := vbs.Open("exp005", []string{mp}, vbs.Scattered, nil)
	if err != nil {
		t.Fatalf("Open exp005: %v", err)
	}
	defer func() { _ = vbs.Close(h2) }()

	if h1 == h2 {
		t.Fatalf("expected distinct handles, got %d and %d", h1, h2)
	}
}

func TestErrno(t *testing.T) {
	if got := vbs.Errno(nil); got != 0 {
		t.Fatalf("Errno(nil) = %v, want 0", got)
	}
	if got := vbs.Errno(vbs.ErrBadHandle); got == 0 {
		t.Fatalf("Errno(ErrBadHandle) should be nonzero")
	}
}
