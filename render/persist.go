package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/mothulity"
)

// Persist writes text to path as UTF-8, replacing any existing file.
// Invalid byte sequences are replaced with U+FFFD. The text goes to a
// temporary file in the same directory first and is renamed over path only
// once fully written, so a failed write never leaves a partial file at path.
// A replaced file keeps its permission bits; a new file gets 0644.
func Persist(path, text string) (err error) {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}

	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", mothulity.ErrIO, path, statErr)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %w", mothulity.ErrIO, dir, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.WriteString(text); err != nil {
		return fmt.Errorf("%w: write %s: %w", mothulity.ErrIO, path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", mothulity.ErrIO, path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", mothulity.ErrIO, path, err)
	}
	if err = os.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("%w: chmod %s: %w", mothulity.ErrIO, path, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", mothulity.ErrIO, path, err)
	}
	return nil
}
