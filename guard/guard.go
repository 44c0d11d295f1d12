// Package guard provides the path and input checks shared by the
// composition packages: root-anchored name resolution for template lookup,
// bounded reads for sub-report documents, and key validation for the ini
// store.
package guard

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// ErrPathTraversal is returned when a name escapes its search root.
var ErrPathTraversal = errors.New("guard: path traversal detected")

// ErrTooLarge is returned by LimitedReadAll when the input exceeds its cap.
var ErrTooLarge = errors.New("guard: input too large")

// RootName turns a user-supplied template name into a name valid for an
// fs.FS rooted at the search root. A single leading slash is accepted and
// means "relative to the root"; any ".." segment is rejected, even one that
// would resolve back inside the root.
func RootName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("guard: empty name")
	}
	name = strings.ReplaceAll(name, `\`, "/")
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
		}
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+name), "/")
	if !fs.ValidPath(cleaned) || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return cleaned, nil
}

// LimitedReadAll reads at most maxBytes from r.
func LimitedReadAll(r io.Reader, maxBytes int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, maxBytes)
	}
	return data, nil
}

// ValidateKey rejects ini section and option names that would corrupt the
// file when written back: empty names, line breaks, brackets, and leading
// comment markers.
func ValidateKey(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("guard: key must not be empty")
	}
	if len(s) > 256 {
		return fmt.Errorf("guard: key too long (max 256)")
	}
	if strings.ContainsAny(s, "\r\n[]") {
		return fmt.Errorf("guard: invalid character in key %q", s)
	}
	if s[0] == ';' || s[0] == '#' {
		return fmt.Errorf("guard: key %q starts with a comment marker", s)
	}
	return nil
}
