// Package render loads text templates from a search root, renders them
// against a variable mapping and persists the result.
//
// An Engine is bound to one search root and owned by its caller; there is
// no package-level template environment. Template names resolve strictly
// under the root: a leading "/" is read as root-relative and ".." segments
// are refused.
//
// Variables a template references but the mapping lacks render as the
// empty string and are logged as warnings.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"

	"github.com/hazyhaar/mothulity"
	"github.com/hazyhaar/mothulity/guard"
)

// Vars maps template variable names to values.
type Vars map[string]any

// Merge copies every entry of src into v, overwriting existing keys.
func (v Vars) Merge(src map[string]string) Vars {
	for k, val := range src {
		v[k] = val
	}
	return v
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for unresolved-variable warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFuncs adds template functions on top of the built-in ones.
func WithFuncs(fm template.FuncMap) Option {
	return func(e *Engine) {
		for k, f := range fm {
			e.funcs[k] = f
		}
	}
}

// Engine loads and renders templates from one search root.
type Engine struct {
	root   fs.FS
	desc   string
	logger *slog.Logger
	funcs  template.FuncMap
}

// New creates an Engine rooted at the directory root.
func New(root string, opts ...Option) *Engine {
	return newEngine(os.DirFS(root), root, opts)
}

// NewFS creates an Engine over fsys, e.g. an embed.FS of bundled templates.
func NewFS(fsys fs.FS, opts ...Option) *Engine {
	return newEngine(fsys, "fs", opts)
}

func newEngine(fsys fs.FS, desc string, opts []Option) *Engine {
	e := &Engine{
		root:   fsys,
		desc:   desc,
		logger: slog.Default(),
		funcs: template.FuncMap{
			"join":    strings.Join,
			"default": defaultValue,
		},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Template is a parsed template and the top-level variables it references.
type Template struct {
	name string
	tmpl *template.Template
	vars []string
}

// Name returns the root-relative name the template was loaded under.
func (t *Template) Name() string { return t.name }

// Variables returns the sorted top-level variable names the template references.
func (t *Template) Variables() []string {
	return append([]string(nil), t.vars...)
}

// Load resolves name under the search root and parses it.
func (e *Engine) Load(name string) (*Template, error) {
	rel, err := guard.RootName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q under %s: %w", mothulity.ErrTemplateNotFound, name, e.desc, err)
	}
	data, err := fs.ReadFile(e.root, rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return nil, fmt.Errorf("%w: %q under %s", mothulity.ErrTemplateNotFound, name, e.desc)
		}
		return nil, fmt.Errorf("%w: read template %q: %w", mothulity.ErrIO, name, err)
	}
	return e.Parse(rel, string(data))
}

// Parse parses text as a template named name without touching the search root.
func (e *Engine) Parse(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Funcs(e.funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("render: parse %s: %w", name, err)
	}
	return &Template{name: name, tmpl: tmpl, vars: referencedVars(tmpl)}, nil
}

// Render executes t against vars. Referenced variables absent from vars
// render as the empty string.
func (e *Engine) Render(t *Template, vars Vars) (string, error) {
	out, _, err := e.RenderReport(t, vars)
	return out, err
}

// RenderReport is Render that also returns the names of the variables that
// were unresolved.
func (e *Engine) RenderReport(t *Template, vars Vars) (string, []string, error) {
	data := make(map[string]any, len(vars)+len(t.vars))
	for k, v := range vars {
		data[k] = v
	}
	var missing []string
	for _, name := range t.vars {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
			data[name] = ""
		}
	}
	if len(missing) > 0 {
		e.logger.Warn("render: unresolved template variables rendered empty",
			"template", t.name, "variables", missing)
	}

	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", missing, fmt.Errorf("render: execute %s: %w", t.name, err)
	}
	return buf.String(), missing, nil
}

// referencedVars walks the parse trees of tmpl and its associated
// templates, collecting the first identifier of every reference to the
// root data: ".name" where dot is still the root, "$.name" anywhere, and
// index calls on the root with a literal key.
func referencedVars(tmpl *template.Template) []string {
	seen := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		if t.Tree != nil && t.Tree.Root != nil {
			walkNode(t.Tree.Root, seen, true)
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// walkNode records references under n. rooted is false inside range and
// with bodies, where dot is rebound.
func walkNode(n parse.Node, seen map[string]bool, rooted bool) {
	switch n := n.(type) {
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, c := range n.Nodes {
			walkNode(c, seen, rooted)
		}
	case *parse.ActionNode:
		walkNode(n.Pipe, seen, rooted)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, c := range n.Cmds {
			walkNode(c, seen, rooted)
		}
	case *parse.CommandNode:
		if name, ok := indexedName(n, rooted); ok {
			seen[name] = true
		}
		for _, a := range n.Args {
			walkNode(a, seen, rooted)
		}
	case *parse.FieldNode:
		if rooted && len(n.Ident) > 0 {
			seen[n.Ident[0]] = true
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			seen[n.Ident[1]] = true
		}
	case *parse.ChainNode:
		walkNode(n.Node, seen, rooted)
	case *parse.IfNode:
		walkNode(n.Pipe, seen, rooted)
		walkNode(n.List, seen, rooted)
		walkNode(n.ElseList, seen, rooted)
	case *parse.RangeNode:
		walkNode(n.Pipe, seen, rooted)
		walkNode(n.List, seen, false)
		walkNode(n.ElseList, seen, rooted)
	case *parse.WithNode:
		walkNode(n.Pipe, seen, rooted)
		walkNode(n.List, seen, false)
		walkNode(n.ElseList, seen, rooted)
	case *parse.TemplateNode:
		walkNode(n.Pipe, seen, rooted)
	}
}

// indexedName returns the key of an `index . "name"` or `index $ "name"`
// call on the root data. Computed keys are not tracked.
func indexedName(n *parse.CommandNode, rooted bool) (string, bool) {
	if len(n.Args) < 3 {
		return "", false
	}
	if id, ok := n.Args[0].(*parse.IdentifierNode); !ok || id.Ident != "index" {
		return "", false
	}
	switch target := n.Args[1].(type) {
	case *parse.DotNode:
		if !rooted {
			return "", false
		}
	case *parse.VariableNode:
		if len(target.Ident) != 1 || target.Ident[0] != "$" {
			return "", false
		}
	default:
		return "", false
	}
	key, ok := n.Args[2].(*parse.StringNode)
	if !ok {
		return "", false
	}
	return key.Text, true
}

// defaultValue returns def when v is empty.
func defaultValue(def, v any) any {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		if x == "" {
			return def
		}
	}
	return v
}
