package pathutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestName(t *testing.T) {
	tests := []struct {
		path string
		ext  bool
		want string
	}{
		{"/home/user/foo.bar", false, "foo"},
		{"/home/user/.foo.bar", false, "foo"},
		{"/home/user/foo.bar", true, "foo.bar"},
		{"/home/user/.foo.bar", true, "foo.bar"},
		{"stability.opti_mcc.shared", false, "stability"},
		{"stability.opti_mcc.shared", true, "stability.opti_mcc.shared"},
		{"noext", false, "noext"},
		{"/trailing/", false, ""},
	}
	for _, tt := range tests {
		if got := Name(tt.path, tt.ext); got != tt.want {
			t.Errorf("Name(%q, %v) = %q, want %q", tt.path, tt.ext, got, tt.want)
		}
	}
}

func TestSelfDir(t *testing.T) {
	dir, err := SelfDir("")
	if err != nil {
		t.Fatalf("self dir: %v", err)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("expected absolute path, got %q", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected existing directory, got %q (%v)", dir, err)
	}

	withName, err := SelfDir("templates")
	if err != nil {
		t.Fatalf("self dir with name: %v", err)
	}
	if withName != filepath.Join(dir, "templates") {
		t.Errorf("got %q, want %q", withName, filepath.Join(dir, "templates"))
	}
}
