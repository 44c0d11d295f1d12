package render

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"
	"text/template"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/mothulity"
)

func writeTemplate(t *testing.T, dir, name, body string) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadRender(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "test.tmpl",
		"Lorem {{.word1}} dolor sit amet, consectetur {{.word2}} elit, sed do eiusmod {{.word3}} incididunt.")

	e := New(dir)
	tmpl, err := e.Load("test.tmpl")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tmpl.Name() != "test.tmpl" {
		t.Errorf("name: got %q, want test.tmpl", tmpl.Name())
	}
	got, err := e.Render(tmpl, Vars{"word1": "ipsum", "word2": "adipisicing", "word3": "tempor"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Lorem ipsum dolor sit amet, consectetur adipisicing elit, sed do eiusmod tempor incididunt."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRender_RoundTrip(t *testing.T) {
	// WHAT: every substituted value appears verbatim and no placeholder syntax remains.
	// WHY: Fragments are markup and must reach the report untouched.
	e := NewFS(fstest.MapFS{
		"report.tmpl": {Data: []byte("<head>{{.krona_link}}</head><body>{{.summary_table}}<p>{{.samples_number}}</p></body>")},
	})
	tmpl, err := e.Load("report.tmpl")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	vars := Vars{
		"krona_link":     `<link rel="shortcut icon" href="http://x/favicon.ico"/>`,
		"summary_table":  `<table id="t"><tbody><tr><td>A&amp;B</td></tr></tbody></table>`,
		"samples_number": 9,
	}
	out, err := e.Render(tmpl, vars)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for k, v := range vars {
		if s, ok := v.(string); ok && !strings.Contains(out, s) {
			t.Errorf("%s not found verbatim in %q", k, out)
		}
	}
	if !strings.Contains(out, "<p>9</p>") {
		t.Errorf("number not rendered: %q", out)
	}
	if regexp.MustCompile(`\{\{|\}\}`).MatchString(out) {
		t.Errorf("residual placeholder syntax in %q", out)
	}
}

func TestRender_MissingVariablesEmpty(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	e := NewFS(fstest.MapFS{
		"t.tmpl": {Data: []byte("[{{.present}}][{{.absent}}][{{if .flag}}on{{end}}]")},
	}, WithLogger(logger))
	tmpl, err := e.Load("t.tmpl")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, missing, err := e.RenderReport(tmpl, Vars{"present": "x"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "[x][][]" {
		t.Errorf("got %q, want [x][][]", out)
	}
	if diff := cmp.Diff([]string{"absent", "flag"}, missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "unresolved template variables") {
		t.Errorf("expected a warning, got logs %q", logs.String())
	}
}

func TestTemplate_Variables(t *testing.T) {
	e := NewFS(fstest.MapFS{})
	tmpl, err := e.Parse("v", `{{.b}} {{if .a}}{{.c}}{{else}}{{.d}}{{end}}{{range .items}}{{.inner}}{{$.e}}{{end}}{{with .f}}{{.g}}{{end}}{{default "x" .h}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"a", "b", "c", "d", "e", "f", "h", "items"}
	if diff := cmp.Diff(want, tmpl.Variables()); diff != "" {
		t.Errorf("variables (-want +got):\n%s", diff)
	}
}

func TestTemplate_IndexedVariables(t *testing.T) {
	// WHAT: `index . "k"` on the root counts as a reference to k.
	// WHY: Without it an absent key renders "<no value>" and goes unreported.
	var logs bytes.Buffer
	e := NewFS(fstest.MapFS{}, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	tmpl, err := e.Parse("x", `[{{index . "k"}}]{{with .items}}{{index $ "m"}}{{index . "inner"}}{{end}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"items", "k", "m"}, tmpl.Variables()); diff != "" {
		t.Errorf("variables (-want +got):\n%s", diff)
	}

	out, missing, err := e.RenderReport(tmpl, Vars{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "[]" {
		t.Errorf("got %q, want []", out)
	}
	if diff := cmp.Diff([]string{"items", "k", "m"}, missing); diff != "" {
		t.Errorf("missing (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "unresolved template variables") {
		t.Errorf("expected a warning, got logs %q", logs.String())
	}
}

func TestFuncs(t *testing.T) {
	e := NewFS(fstest.MapFS{}, WithFuncs(template.FuncMap{"upper": strings.ToUpper}))
	tmpl, err := e.Parse("f", `{{join .groups "-"}}|{{default "none" .junk}}|{{upper .label}}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := e.Render(tmpl, Vars{"groups": []string{"A", "B"}, "junk": "", "label": "unique"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "A-B|none|UNIQUE" {
		t.Errorf("got %q, want A-B|none|UNIQUE", out)
	}
}

func TestLoad_NotFound(t *testing.T) {
	e := New(t.TempDir())
	_, err := e.Load("absent.tmpl")
	if !errors.Is(err, mothulity.ErrTemplateNotFound) {
		t.Fatalf("got %v, want ErrTemplateNotFound", err)
	}
}

func TestLoad_RootAnchored(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "templates")
	writeTemplate(t, root, "sub/inner.tmpl", "inner")
	writeTemplate(t, parent, "secret.tmpl", "outside")

	e := New(root)
	inner, err := e.Load("/sub/inner.tmpl")
	if err != nil {
		t.Fatalf("leading slash should be root-relative: %v", err)
	}
	if inner.Name() != "sub/inner.tmpl" {
		t.Errorf("name: got %q, want sub/inner.tmpl", inner.Name())
	}
	for _, name := range []string{"../secret.tmpl", "sub/../../secret.tmpl", "/../secret.tmpl"} {
		if _, err := e.Load(name); !errors.Is(err, mothulity.ErrTemplateNotFound) {
			t.Errorf("Load(%q): got %v, want ErrTemplateNotFound", name, err)
		}
	}
}

func TestLoad_ParseError(t *testing.T) {
	e := NewFS(fstest.MapFS{"bad.tmpl": {Data: []byte("{{.unclosed")}})
	_, err := e.Load("bad.tmpl")
	if err == nil || errors.Is(err, mothulity.ErrTemplateNotFound) {
		t.Fatalf("expected a parse error, got %v", err)
	}
}

func TestPersist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.html")
	if err := os.WriteFile(path, []byte("old content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Persist(path, "héllo"); err != nil {
		t.Fatalf("persist: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "héllo" {
		t.Errorf("got %q, want héllo", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestPersist_KeepsMode(t *testing.T) {
	// WHAT: overwriting a 0600 file leaves it 0600; a new file is 0644.
	// WHY: The ini store rewrites config files that may hold private paths.
	dir := t.TempDir()
	private := filepath.Join(dir, "private.ini")
	if err := os.WriteFile(private, []byte("[a]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(private, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := Persist(private, "[b]\n"); err != nil {
		t.Fatalf("persist: %v", err)
	}
	fi, err := os.Stat(private)
	if err != nil {
		t.Fatal(err)
	}
	if got := fi.Mode().Perm(); got != 0o600 {
		t.Errorf("got mode %v, want 0600", got)
	}

	fresh := filepath.Join(dir, "fresh.html")
	if err := Persist(fresh, "x"); err != nil {
		t.Fatalf("persist: %v", err)
	}
	fi, err = os.Stat(fresh)
	if err != nil {
		t.Fatal(err)
	}
	if got := fi.Mode().Perm(); got != 0o644 {
		t.Errorf("got mode %v, want 0644", got)
	}
}

func TestPersist_InvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := Persist(path, "a\xffb"); err != nil {
		t.Fatalf("persist: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "a\uFFFDb" {
		t.Errorf("got %q", data)
	}
}

func TestPersist_UnwritableDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.txt")
	err := Persist(path, "x")
	if !errors.Is(err, mothulity.ErrIO) {
		t.Fatalf("got %v, want ErrIO", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("destination must not exist after a failed write")
	}
}
