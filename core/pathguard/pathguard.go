// Package pathguard sanitizes untrusted filenames and checks that paths stay
// inside the storage root.
package pathguard

import (
	"os"
	"path/filepath"
	"strings"
)

// MaxNameLength is the longest filename Sanitize returns, in bytes.
const MaxNameLength = 255

var unsafeChars = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// Sanitize reduces raw to its final path segment, replaces characters that are
// unsafe in filenames with '_' and caps the length while keeping the extension.
func Sanitize(raw string) string {
	// Both separators count, whatever the host OS. Trailing ones are
	// dropped so "a/b/" keeps "b".
	name := strings.TrimRight(raw, `/\`)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeChars.Replace(name)

	if len(name) > MaxNameLength {
		ext := filepath.Ext(name)
		if len(ext) >= MaxNameLength {
			ext = ""
		}
		stem := truncateUTF8(strings.TrimSuffix(name, ext), MaxNameLength-len(ext))
		name = stem + ext
	}
	return name
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// IsContained reports whether path, once resolved, lies inside root. It fails
// closed: any resolution error yields false.
//
// The check is component-wise, so a root of /data/dl does not contain
// /data/dl-evil.
func IsContained(path, root string) bool {
	resolvedRoot, err := resolve(root)
	if err != nil {
		return false
	}
	resolvedPath, err := resolve(path)
	if err != nil {
		return false
	}
	if resolvedPath == resolvedRoot {
		return true
	}
	prefix := resolvedRoot
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(resolvedPath, prefix)
}

// resolve returns the canonical absolute form of p with symlinks followed.
// A missing leaf is tolerated when its parent directory resolves.
func resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(abs))
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, filepath.Base(abs)), nil
}
