package pathutil_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"libvbs/internal/pathutil"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"plain", "exp001a"},
		{"dot", "exp.001"},
		{"metacharacters", "a.b*c[d]e+f"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escaped := pathutil.Escape(tt.in)
			re, err := regexp.Compile("^" + escaped + "$")
			if err != nil {
				t.Fatalf("compiled regex invalid: %v", err)
			}
			if !re.MatchString(tt.in) {
				t.Fatalf("escaped pattern %q does not match literal input %q", escaped, tt.in)
			}
		})
	}
}

func TestEscapeIdempotentOnSafeChars(t *testing.T) {
	if got := pathutil.Escape("abcXYZ_123"); got != "abcXYZ_123" {
		t.Fatalf("expected unescaped passthrough, got %q", got)
	}
}

func TestIsMountpointAcceptsDiskDir(t *testing.T) {
	root := t.TempDir()
	disk := filepath.Join(root, "disk0")
	if err := os.Mkdir(disk, 0o755); err != nil {
		t.Fatal(err)
	}
	if !pathutil.IsMountpoint(disk) {
		t.Fatalf("expected %s to be recognized as a mountpoint", disk)
	}
}

func TestIsMountpointRejectsWrongName(t *testing.T) {
	root := t.TempDir()
	other := filepath.Join(root, "notadisk")
	if err := os.Mkdir(other, 0o755); err != nil {
		t.Fatal(err)
	}
	if pathutil.IsMountpoint(other) {
		t.Fatalf("expected %s to be rejected", other)
	}
}

func TestIsMountpointRejectsFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "disk1")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if pathutil.IsMountpoint(file) {
		t.Fatalf("expected regular file %s to be rejected", file)
	}
}

func TestIsMountpointRejectsMissing(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "disk9")
	if pathutil.IsMountpoint(missing) {
		t.Fatalf("expected missing path %s to be rejected", missing)
	}
}
