// Package pathutil resolves the running program's directory and reduces
// file paths to bare names used for job and output naming.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// hiddenMarker prefixes hidden file names and is stripped from both ends.
const hiddenMarker = "."

// SelfDir returns the absolute directory of the running executable. When
// name is non-empty it is joined to that directory.
func SelfDir(name string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("pathutil: executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	dir := filepath.Dir(exe)
	if name != "" {
		dir = filepath.Join(dir, name)
	}
	return filepath.Abs(dir)
}

// Name returns the last slash-separated component of path with leading and
// trailing hidden-file markers removed. Without ext, everything from the
// first remaining dot is dropped as well:
//
//	Name("/home/user/.foo.bar", false) == "foo"
//	Name("/home/user/.foo.bar", true)  == "foo.bar"
func Name(path string, ext bool) string {
	base := filepath.ToSlash(path)
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	base = strings.Trim(base, hiddenMarker)
	if ext {
		return base
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}
