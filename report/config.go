package report

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/mothulity/shared"
)

// Config holds the composition settings.
type Config struct {
	// TemplatesDir is the search root for templates. Empty uses the
	// templates bundled with the binary.
	TemplatesDir   string `yaml:"templates_dir"`
	ScriptTemplate string `yaml:"script_template"`
	ReportTemplate string `yaml:"report_template"`

	MinFold   float64 `yaml:"min_fold"`
	Delimiter string  `yaml:"delimiter"`
	Columns   Columns `yaml:"columns"`

	Processors int `yaml:"processors"`

	// JobName titles the script and report. Empty derives it from the
	// shared file name.
	JobName string `yaml:"job_name"`

	// MarkdownDigest also writes the summary table as Markdown next to the report.
	MarkdownDigest bool `yaml:"markdown_digest"`

	// MaxFileSize caps each sub-report read, in bytes.
	MaxFileSize int64 `yaml:"max_file_size"`
}

// Columns names the shared file columns.
type Columns struct {
	Label     string `yaml:"label"`
	Group     string `yaml:"group"`
	OTUPrefix string `yaml:"otu_prefix"`
	Count     string `yaml:"count"`
}

// DefaultConfig returns the defaults matching mothur's shared file layout.
func DefaultConfig() *Config {
	return &Config{
		ScriptTemplate: "analysis.batch.tmpl",
		ReportTemplate: "report.html.tmpl",
		MinFold:        5,
		Delimiter:      "\t",
		Columns: Columns{
			Label:     "label",
			Group:     "Group",
			OTUPrefix: "Otu",
			Count:     "numOtus",
		},
		Processors:  1,
		MaxFileSize: 64 << 20,
	}
}

// LoadConfig reads a YAML config file over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.ScriptTemplate == "" {
		return fmt.Errorf("script_template is required")
	}
	if c.ReportTemplate == "" {
		return fmt.Errorf("report_template is required")
	}
	if c.MinFold <= 0 {
		return fmt.Errorf("min_fold must be > 0")
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	if c.Processors < 1 {
		return fmt.Errorf("processors must be >= 1")
	}
	if c.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be > 0")
	}
	return nil
}

// SharedOptions converts the table settings for shared.Analyze.
func (c *Config) SharedOptions() shared.Options {
	delim, _ := utf8.DecodeRuneInString(c.Delimiter)
	return shared.Options{
		MinFold:     c.MinFold,
		LabelColumn: c.Columns.Label,
		GroupColumn: c.Columns.Group,
		OTUPrefix:   c.Columns.OTUPrefix,
		CountColumn: c.Columns.Count,
		Delimiter:   delim,
	}
}
