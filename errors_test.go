package mothulity

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseError_Is(t *testing.T) {
	err := fmt.Errorf("analyze: %w", &ParseError{Path: "a.shared", Row: 3, Column: "Otu_2", Reason: "not a number"})
	if !errors.Is(err, ErrParse) {
		t.Fatal("expected errors.Is(err, ErrParse)")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatal("expected *ParseError")
	}
	if pe.Row != 3 {
		t.Errorf("row: got %d, want 3", pe.Row)
	}
	if !strings.Contains(err.Error(), `column "Otu_2"`) {
		t.Errorf("message: got %q", err.Error())
	}
}

func TestFormatError_Message(t *testing.T) {
	tests := []struct {
		err  *FormatError
		want string
	}{
		{&FormatError{DocType: "summary", Slot: "script", Index: 5, Have: 5}, `summary document: slot "script" wants node 5, have 5`},
		{&FormatError{DocType: "nmds", Slot: "div", Index: -1}, `nmds document: slot "div": element not found`},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
		if !errors.Is(tt.err, ErrFormat) {
			t.Errorf("%v: expected ErrFormat", tt.err)
		}
	}
}
