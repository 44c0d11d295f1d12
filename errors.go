// Package mothulity holds the error taxonomy shared by the composition
// layer: shared-file analysis, sub-report fragment extraction and template
// rendering.
//
// Callers classify failures with errors.Is against the sentinels below;
// ParseError and FormatError carry the offending location.
package mothulity

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks a source that cannot be read or a destination that cannot be written.
	ErrIO = errors.New("mothulity: i/o error")

	// ErrParse marks tabular input missing required columns or structurally malformed.
	ErrParse = errors.New("mothulity: parse error")

	// ErrFormat marks an HTML sub-report that does not match its slot schema.
	ErrFormat = errors.New("mothulity: format error")

	// ErrTemplateNotFound marks a template name that does not resolve under the search root.
	ErrTemplateNotFound = errors.New("mothulity: template not found")

	// ErrUndefinedLabel marks a table with no data rows.
	ErrUndefinedLabel = errors.New("mothulity: undefined label")
)

// ParseError describes a malformed composition table.
// Row is 1-based and counts the header as row 1; zero means the whole file.
type ParseError struct {
	Path   string
	Row    int
	Column string
	Reason string
}

func (e *ParseError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("parse %s: row %d, column %q: %s", e.Path, e.Row, e.Column, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("parse %s: row %d: %s", e.Path, e.Row, e.Reason)
	case e.Column != "":
		return fmt.Sprintf("parse %s: column %q: %s", e.Path, e.Column, e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
}

// Unwrap lets errors.Is match ErrParse.
func (e *ParseError) Unwrap() error { return ErrParse }

// FormatError reports the slot that could not be bound.
// Index is -1 for tag-located slots; Have is the number of candidate nodes found.
type FormatError struct {
	DocType string
	Slot    string
	Index   int
	Have    int
}

func (e *FormatError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s document: slot %q: element not found", e.DocType, e.Slot)
	}
	return fmt.Sprintf("%s document: slot %q wants node %d, have %d", e.DocType, e.Slot, e.Index, e.Have)
}

// Unwrap lets errors.Is match ErrFormat.
func (e *FormatError) Unwrap() error { return ErrFormat }
