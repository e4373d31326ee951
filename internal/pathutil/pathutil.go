// Package pathutil provides the small filesystem and regex-safety
// primitives the discovery engine builds on: escaping a recording name
// for literal inclusion in a regex, and classifying a directory entry
// as a mountpoint.
package pathutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var mountpointName = regexp.MustCompile(`^disk[0-9]+$`)

// Escape returns s with every byte outside [A-Za-z0-9_] preceded by a
// backslash, so the result can be embedded in a regex and match s
// literally regardless of which characters s contains.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isUnescaped(c) {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isUnescaped(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_':
		return true
	default:
		return false
	}
}

// IsMountpoint reports whether entry is a mountpoint directory: its
// basename matches ^disk[0-9]+$, lstat succeeds without following
// symlinks, it names a directory, and the caller has read+execute
// permission on it.
func IsMountpoint(entry string) bool {
	if !mountpointName.MatchString(filepath.Base(entry)) {
		return false
	}
	info, err := os.Lstat(entry)
	if err != nil {
		return false
	}
	if !info.IsDir() {
		return false
	}
	f, err := os.Open(entry)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	// Opening and listing the directory needs read permission; io.EOF
	// just means it's empty.
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return false
	}
	// Resolving a path through the directory needs execute (search)
	// permission on it.
	if _, err := os.Lstat(entry + string(filepath.Separator) + "."); err != nil {
		return false
	}
	return true
}
