package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	frames := filepath.Join(tmpDir, "frames")
	outside := filepath.Join(tmpDir, "outside")
	for _, d := range []string{frames, outside} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", d, err)
		}
	}
	secret := filepath.Join(outside, "secret.png")
	if err := os.WriteFile(secret, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := os.Symlink(secret, filepath.Join(frames, "001.png")); err != nil {
		t.Fatalf("Failed to create file symlink: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(frames, "linked")); err != nil {
		t.Fatalf("Failed to create dir symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"plain file", filepath.Join(frames, "000.png"), false},
		{"nested new file", filepath.Join(frames, "sub", "a.png"), false},
		{"dot dot", filepath.Join(frames, "..", "outside", "secret.png"), true},
		{"relative escape", "../../../etc/passwd", true},
		{"absolute elsewhere", secret, true},
		{"symlinked file", filepath.Join(frames, "001.png"), true},
		{"new file under symlinked dir", filepath.Join(frames, "linked", "new.png"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, frames)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q) error = %v, wantError %v", tt.filePath, err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	if err := ValidatePathWithinDirectory(filepath.Join(missing, "a.png"), missing); err == nil {
		t.Error("expected error for a directory that does not exist")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"walk.jsonl", "walk.jsonl"},
		{"/data/clips/walk 01.jsonl", "data_clips_walk_01.jsonl"},
		{"stdin", "stdin"},
		{"../../etc/passwd", "etc_passwd"},
		{"ñandú", "and"},
		{"a__b", "a_b"},
		{"", "unknown"},
		{"///", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := SanitizeFilename(strings.Repeat("a", 300))
	if len(long) != 128 {
		t.Errorf("len(SanitizeFilename(300 x a)) = %d, want 128", len(long))
	}
}
