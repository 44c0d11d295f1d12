// Package report composes the mothur analysis script and the aggregated
// HTML report.
//
// A Composer ties the other packages together: it analyzes the shared file
// (package shared), renders the batch script, extracts fragments from the
// sub-reports (package fragment) and renders them into one document
// (package render).
package report

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/mothulity/fragment"
	"github.com/hazyhaar/mothulity/pathutil"
	"github.com/hazyhaar/mothulity/render"
	"github.com/hazyhaar/mothulity/shared"
)

//go:embed templates/*.tmpl
var bundled embed.FS

// Templates returns the templates bundled with the binary.
func Templates() fs.FS {
	sub, err := fs.Sub(bundled, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Inputs names the sub-reports to aggregate. Empty paths are skipped and
// their variables render empty.
type Inputs struct {
	Krona       string
	Summary     string
	Rarefaction string
	NMDS        string

	// Info, when set, adds the table parameters to the report.
	Info *shared.Info
}

func (in Inputs) paths() []struct {
	t    fragment.DocType
	path string
} {
	return []struct {
		t    fragment.DocType
		path string
	}{
		{fragment.TypeKrona, in.Krona},
		{fragment.TypeSummary, in.Summary},
		{fragment.TypeRarefaction, in.Rarefaction},
		{fragment.TypeNMDS, in.NMDS},
	}
}

// Composer renders scripts and reports with one configuration.
type Composer struct {
	cfg       *Config
	logger    *slog.Logger
	engine    *render.Engine
	extractor *fragment.Extractor
	policy    *bluemonday.Policy
	markdown  *converter.Converter
}

// New validates cfg and creates a Composer. A nil cfg uses DefaultConfig.
func New(cfg *Config, logger *slog.Logger) (*Composer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("report: config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []render.Option{
		render.WithLogger(logger),
		render.WithFuncs(template.FuncMap{"name": pathutil.Name}),
	}
	var engine *render.Engine
	if cfg.TemplatesDir != "" {
		engine = render.New(cfg.TemplatesDir, opts...)
	} else {
		engine = render.NewFS(Templates(), opts...)
	}

	return &Composer{
		cfg:       cfg,
		logger:    logger,
		engine:    engine,
		extractor: fragment.New(fragment.Config{MaxFileSize: cfg.MaxFileSize, Logger: logger}),
		policy:    bluemonday.StrictPolicy(),
		markdown: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}, nil
}

// Analyze reads the shared file at path with the configured table settings.
func (c *Composer) Analyze(path string) (*shared.Info, error) {
	opts := c.cfg.SharedOptions()
	opts.Logger = c.logger
	return shared.Analyze(path, opts)
}

// AnalyzeReader is Analyze over an open table; name labels errors and logs.
func (c *Composer) AnalyzeReader(r io.Reader, name string) (*shared.Info, error) {
	opts := c.cfg.SharedOptions()
	opts.Logger = c.logger
	return shared.AnalyzeReader(r, name, opts)
}

// jobName returns the configured job name, or the base name of path
// without extension.
func (c *Composer) jobName(path string) string {
	if c.cfg.JobName != "" {
		return c.cfg.JobName
	}
	return pathutil.Name(path, false)
}

// ScriptVars returns the variables of the analysis script for a shared
// file already analyzed into info.
func (c *Composer) ScriptVars(sharedPath, out string, info *shared.Info) (render.Vars, error) {
	absShared, err := filepath.Abs(sharedPath)
	if err != nil {
		return nil, fmt.Errorf("report: resolve %s: %w", sharedPath, err)
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return nil, fmt.Errorf("report: resolve %s: %w", out, err)
	}
	return render.Vars{
		"job_name":       c.jobName(sharedPath),
		"shared":         absShared,
		"input_dir":      filepath.Dir(absShared),
		"output_dir":     filepath.Dir(absOut),
		"processors":     c.cfg.Processors,
		"label":          info.Label,
		"junk_grps":      info.CompactJunk(),
		"samples_number": info.Samples,
	}, nil
}

// Script analyzes the shared file, renders the analysis script into out and
// returns the table parameters it used.
func (c *Composer) Script(sharedPath, out string) (*shared.Info, error) {
	info, err := c.Analyze(sharedPath)
	if err != nil {
		return nil, err
	}
	vars, err := c.ScriptVars(sharedPath, out, info)
	if err != nil {
		return nil, err
	}
	tmpl, err := c.engine.Load(c.cfg.ScriptTemplate)
	if err != nil {
		return nil, err
	}
	text, err := c.engine.Render(tmpl, vars)
	if err != nil {
		return nil, err
	}
	if err := render.Persist(out, text); err != nil {
		return nil, err
	}
	c.logger.Info("report: script written", "path", out, "template", tmpl.Name(), "label", info.Label,
		"samples", info.Samples, "junk", len(info.Junk))
	return info, nil
}

// ReportVars extracts every provided sub-report and returns the report
// variables. Extraction stops at the first failing document.
func (c *Composer) ReportVars(in Inputs, out string) (render.Vars, error) {
	vars := render.Vars{}
	var extracted []fragment.Fragments
	for _, p := range in.paths() {
		if p.path == "" {
			c.logger.Debug("report: sub-report not provided", "type", p.t)
			continue
		}
		frags, err := c.extractor.Extract(p.path, p.t)
		if err != nil {
			return nil, err
		}
		vars.Merge(frags.Vars())
		extracted = append(extracted, frags)
	}

	name := c.jobName(out)
	if in.Info != nil {
		vars["label"] = c.text(in.Info.Label)
		vars["samples_number"] = in.Info.Samples
		vars["junk_grps"] = c.text(in.Info.CompactJunk())
	} else {
		vars["label"] = ""
		vars["samples_number"] = 0
		vars["junk_grps"] = ""
	}
	vars["job_name"] = c.text(name)
	c.logger.Debug("report: fragments extracted", "documents", len(extracted), "vars", len(vars))
	return vars, nil
}

// text escapes s for insertion into HTML, dropping any markup.
func (c *Composer) text(s string) string {
	return c.policy.Sanitize(s)
}

// Compose extracts the sub-reports in in, renders the report template and
// writes the result to out.
func (c *Composer) Compose(in Inputs, out string) error {
	vars, err := c.ReportVars(in, out)
	if err != nil {
		return err
	}
	tmpl, err := c.engine.Load(c.cfg.ReportTemplate)
	if err != nil {
		return err
	}
	text, missing, err := c.engine.RenderReport(tmpl, vars)
	if err != nil {
		return err
	}
	if err := render.Persist(out, text); err != nil {
		return err
	}
	c.logger.Info("report: written", "path", out, "template", tmpl.Name(), "unresolved", len(missing))

	if c.cfg.MarkdownDigest {
		table, _ := vars["summary_table"].(string)
		if table == "" {
			c.logger.Warn("report: markdown digest skipped, no summary table")
			return nil
		}
		if err := c.writeDigest(DigestPath(out), vars["job_name"].(string), table); err != nil {
			return err
		}
	}
	return nil
}

// DigestPath returns the Markdown digest path for a report written to out.
func DigestPath(out string) string {
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".md"
}

func (c *Composer) writeDigest(path, title, table string) error {
	md, err := c.markdown.ConvertString(table)
	if err != nil {
		return fmt.Errorf("report: markdown digest: %w", err)
	}
	text := "# " + title + "\n\n" + strings.TrimSpace(md) + "\n"
	if err := render.Persist(path, text); err != nil {
		return err
	}
	c.logger.Info("report: markdown digest written", "path", path)
	return nil
}
