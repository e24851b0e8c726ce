package pathguard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"video.mp4", "video.mp4"},
		{"../../etc/passwd", "passwd"},
		{`..\..\windows\win.ini`, "win.ini"},
		{"a:b*c.mp4", "a_b_c.mp4"},
		{`q"<x>|y?.webm`, "q__x__y_.webm"},
		{"..", ".."},
		{"dir/", "dir"},
		{"a/b/", "b"},
		{`a\b\\`, "b"},
		{"/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeLongName(t *testing.T) {
	got := Sanitize(strings.Repeat("a", 400) + ".mp4")
	if len(got) != MaxNameLength {
		t.Fatalf("len = %d, want %d", len(got), MaxNameLength)
	}
	if !strings.HasSuffix(got, ".mp4") {
		t.Fatalf("extension lost: %q", got[len(got)-8:])
	}

	// 3-byte runes must not be split
	got = Sanitize(strings.Repeat("视", 200) + ".mkv")
	if len(got) > MaxNameLength || !utf8.ValidString(got) || !strings.HasSuffix(got, ".mkv") {
		t.Fatalf("bad multibyte truncation: len=%d valid=%v", len(got), utf8.ValidString(got))
	}
}

func TestIsContained(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "dl")
	sibling := filepath.Join(base, "dl-evil")
	for _, d := range []string{root, sibling} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "x.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sibling, "y.mp4"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(sibling, "y.mp4"), filepath.Join(root, "link.mp4")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"file inside", filepath.Join(root, "x.mp4"), true},
		{"root itself", root, true},
		{"missing leaf", filepath.Join(root, "not-yet.mp4"), true},
		{"dot dot", filepath.Join(root, "..", "x.mp4"), false},
		{"sibling prefix", filepath.Join(sibling, "y.mp4"), false},
		{"symlink escape", filepath.Join(root, "link.mp4"), false},
		{"missing parent", filepath.Join(root, "nope", "x.mp4"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsContained(tt.path, root); got != tt.want {
				t.Errorf("IsContained(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsContainedRelativeRoot(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	if err := os.Mkdir("downloads", 0o755); err != nil {
		t.Fatal(err)
	}
	if !IsContained(filepath.Join(dir, "downloads", "a.mp3"), "downloads") {
		t.Fatal("absolute path under relative root should be contained")
	}
	if IsContained("a.mp3", "downloads") {
		t.Fatal("cwd file is outside the root")
	}
}
