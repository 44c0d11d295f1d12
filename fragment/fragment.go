// Package fragment extracts named markup fragments from the HTML
// sub-reports produced after a mothur run, so they can be spliced into a
// single aggregated report without iframes.
//
// Each document type has a fixed slot schema (see Schema). Extraction
// parses the document, binds every slot to its node and renders that node
// back to markup. A document that does not match its schema fails with a
// *mothulity.FormatError.
//
// Usage:
//
//	frags, err := fragment.Extract("krona.html", fragment.TypeKrona)
//	k := frags.(*fragment.Krona)
//	fmt.Println(k.DivKrona)
package fragment

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/mothulity"
	"github.com/hazyhaar/mothulity/guard"
)

// Config configures an Extractor.
type Config struct {
	// MaxFileSize is the largest sub-report read (default: 64 MiB).
	MaxFileSize int64

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 64 << 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Extractor reads sub-report files and binds their slots.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Extractor with the given configuration.
func New(cfg Config) *Extractor {
	cfg.defaults()
	return &Extractor{cfg: cfg, logger: cfg.Logger}
}

// Extract parses the document at path as type t using a default Extractor.
func Extract(path string, t DocType) (Fragments, error) {
	return New(Config{}).Extract(path, t)
}

// Extract parses the document at path as type t and returns its typed fragments.
func (e *Extractor) Extract(path string, t DocType) (Fragments, error) {
	slots, err := e.ExtractSlots(path, t)
	if err != nil {
		return nil, err
	}
	return build(t, slots), nil
}

// ExtractSlots parses the document at path and returns slot name → markup.
func (e *Extractor) ExtractSlots(path string, t DocType) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", mothulity.ErrIO, path, err)
	}
	defer f.Close()

	slots, err := e.parse(f, t)
	if err != nil {
		return nil, fmt.Errorf("fragment: %s: %w", path, err)
	}
	e.logger.Debug("fragment: extracted", "path", path, "type", t, "slots", len(slots))
	return slots, nil
}

// Parse reads a document of type t from r and returns its typed fragments.
func (e *Extractor) Parse(r io.Reader, t DocType) (Fragments, error) {
	slots, err := e.parse(r, t)
	if err != nil {
		return nil, err
	}
	return build(t, slots), nil
}

func (e *Extractor) parse(r io.Reader, t DocType) (map[string]string, error) {
	schema, ok := schemas[t]
	if !ok {
		return nil, fmt.Errorf("fragment: unknown document type %q", t)
	}

	data, err := guard.LimitedReadAll(r, e.cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", mothulity.ErrIO, err)
	}

	sections, err := parseSections(data, fullDocument(schema))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s document: %w", mothulity.ErrFormat, t, err)
	}

	out := make(map[string]string, len(schema))
	for _, slot := range schema {
		nodes := sections[slot.Section]
		var n *html.Node
		if slot.Tag != "" {
			n = findFirst(nodes, slot.Tag)
			if n == nil {
				return nil, &mothulity.FormatError{DocType: string(t), Slot: slot.Name, Index: -1}
			}
		} else {
			if slot.Index >= len(nodes) {
				return nil, &mothulity.FormatError{DocType: string(t), Slot: slot.Name, Index: slot.Index, Have: len(nodes)}
			}
			n = nodes[slot.Index]
		}
		markup, err := renderNode(n)
		if err != nil {
			return nil, fmt.Errorf("%w: render %s slot %q: %w", mothulity.ErrFormat, t, slot.Name, err)
		}
		out[slot.Name] = markup
	}
	return out, nil
}

// parseSections returns the significant child nodes of each section.
// Full documents go through the HTML5 tree builder so head and body exist;
// fragments are parsed in a <body> context and keep their top-level order.
func parseSections(data []byte, full bool) (map[Section][]*html.Node, error) {
	sections := make(map[Section][]*html.Node)
	if full {
		doc, err := html.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if head := findFirst([]*html.Node{doc}, "head"); head != nil {
			sections[SectionHead] = significantChildren(head)
		}
		if body := findFirst([]*html.Node{doc}, "body"); body != nil {
			sections[SectionBody] = significantChildren(body)
		}
		sections[SectionRoot] = significantChildren(doc)
		return sections, nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(bytes.NewReader(data), body)
	if err != nil {
		return nil, err
	}
	sections[SectionRoot] = significant(nodes)
	return sections, nil
}

func significantChildren(n *html.Node) []*html.Node {
	var nodes []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		nodes = append(nodes, c)
	}
	return significant(nodes)
}

// significant drops whitespace-only text nodes.
func significant(nodes []*html.Node) []*html.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) == "" {
			continue
		}
		out = append(out, n)
	}
	return out
}

// findFirst returns the first element named tag in document order under
// the given roots, the roots included.
func findFirst(roots []*html.Node, tag string) *html.Node {
	var walk func(*html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == tag {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found := walk(c); found != nil {
				return found
			}
		}
		return nil
	}
	for _, r := range roots {
		if found := walk(r); found != nil {
			return found
		}
	}
	return nil
}

func renderNode(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}
