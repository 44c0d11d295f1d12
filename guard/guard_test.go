package guard

import (
	"errors"
	"strings"
	"testing"
)

func TestRootName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"report.html.tmpl", "report.html.tmpl", false},
		{"/report.html.tmpl", "report.html.tmpl", false},
		{"sub/dir/x.tmpl", "sub/dir/x.tmpl", false},
		{"./x.tmpl", "x.tmpl", false},
		{"../etc/passwd", "", true},
		{"a/../b.tmpl", "", true},
		{"a/../../outside", "", true},
		{"", "", true},
		{"/", "", true},
	}
	for _, tt := range tests {
		got, err := RootName(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("RootName(%q) error=%v, wantErr=%v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("RootName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRootName_TraversalSentinel(t *testing.T) {
	_, err := RootName("../x")
	if !errors.Is(err, ErrPathTraversal) {
		t.Fatalf("expected ErrPathTraversal, got %v", err)
	}
}

func TestLimitedReadAll(t *testing.T) {
	data, err := LimitedReadAll(strings.NewReader("hello"), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}
	if _, err := LimitedReadAll(strings.NewReader("hello!"), 5); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"mothur", false},
		{"mothur path", false},
		{"", true},
		{"  ", true},
		{"a]b", true},
		{"line\nbreak", true},
		{";comment", true},
		{"#comment", true},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateKey(%q) error=%v, wantErr=%v", tt.in, err, tt.wantErr)
		}
	}
}
