// Package shared derives analysis parameters from a mothur shared file: the
// distance label, the number of samples, and the groups whose sampling
// depth is too shallow to compare with the rest.
//
// Usage:
//
//	info, err := shared.Analyze("stability.opti_mcc.shared", shared.Options{})
//	fmt.Println(info.Label, info.Samples, info.CompactJunk())
package shared

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hazyhaar/mothulity"
)

// JunkSeparator joins junk group names in the compact form mothur accepts
// for remove.groups.
const JunkSeparator = "-"

// Options configures Analyze. Zero values take the defaults.
type Options struct {
	// MinFold divides the mean group size to obtain the junk threshold (default: 5).
	MinFold float64

	LabelColumn string // default: label
	GroupColumn string // default: Group
	OTUPrefix   string // default: Otu
	CountColumn string // default: numOtus, excluded from summation

	// Delimiter separates fields (default: tab).
	Delimiter rune

	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.MinFold == 0 {
		o.MinFold = 5
	}
	if o.LabelColumn == "" {
		o.LabelColumn = "label"
	}
	if o.GroupColumn == "" {
		o.GroupColumn = "Group"
	}
	if o.OTUPrefix == "" {
		o.OTUPrefix = "Otu"
	}
	if o.CountColumn == "" {
		o.CountColumn = "numOtus"
	}
	if o.Delimiter == 0 {
		o.Delimiter = '\t'
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

func (o *Options) validate() error {
	if math.IsNaN(o.MinFold) || math.IsInf(o.MinFold, 0) || o.MinFold <= 0 {
		return fmt.Errorf("shared: min fold must be a positive number, got %v", o.MinFold)
	}
	return nil
}

// GroupSize is the total read count of one group (one table row).
type GroupSize struct {
	Group string `json:"group"`
	Size  int64  `json:"size"`
}

// Info is the result of analysing a shared file.
type Info struct {
	Label     string      `json:"label"`
	Labels    []string    `json:"labels"` // distinct labels in row order
	Samples   int         `json:"samples_number"`
	Groups    []GroupSize `json:"groups"`
	Mean      float64     `json:"mean"`
	Threshold float64     `json:"threshold"`
	Junk      []string    `json:"junk_grps"` // table order
}

// CompactJunk returns the junk groups joined by JunkSeparator.
func (i *Info) CompactJunk() string {
	return strings.Join(i.Junk, JunkSeparator)
}

// MixedLabels reports whether rows disagree on the label.
func (i *Info) MixedLabels() bool {
	return len(i.Labels) > 1
}

// Analyze reads the shared file at path and computes group sizes, the
// junk threshold and the junk groups. A group is junk when its size is
// strictly below mean/MinFold.
func Analyze(path string, opts Options) (*Info, error) {
	opts.defaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", mothulity.ErrIO, path, err)
	}
	defer f.Close()

	return analyze(f, path, opts)
}

// AnalyzeReader is Analyze over an already open table. name is used in
// error messages only.
func AnalyzeReader(r io.Reader, name string, opts Options) (*Info, error) {
	opts.defaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return analyze(r, name, opts)
}

func analyze(r io.Reader, name string, opts Options) (*Info, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.ReuseRecord = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &mothulity.ParseError{Path: name, Reason: "missing header row"}
	}
	if err != nil {
		return nil, readError(name, err)
	}
	header = append([]string(nil), header...)
	cols, err := resolveColumns(header, name, opts)
	if err != nil {
		return nil, err
	}

	info := &Info{}
	seen := make(map[string]bool)
	var total int64
	row := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(name, err)
		}
		row++

		label := rec[cols.label]
		if info.Samples == 0 {
			info.Label = label
		}
		if !seen[label] {
			seen[label] = true
			info.Labels = append(info.Labels, label)
		}

		var size int64
		for _, c := range cols.otus {
			n, err := parseCount(rec[c])
			if err != nil {
				return nil, &mothulity.ParseError{Path: name, Row: row, Column: header[c], Reason: err.Error()}
			}
			size += n
		}
		info.Groups = append(info.Groups, GroupSize{Group: rec[cols.group], Size: size})
		info.Samples++
		total += size
	}

	if info.Samples == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", mothulity.ErrUndefinedLabel, name)
	}
	if info.MixedLabels() {
		opts.Logger.Warn("shared: rows carry different labels, using the first",
			"path", name, "label", info.Label, "labels", info.Labels)
	}

	info.Mean = float64(total) / float64(info.Samples)
	info.Threshold = info.Mean / opts.MinFold
	info.Junk = junkGroups(info.Groups, info.Threshold)

	opts.Logger.Debug("shared: analyzed",
		"path", name, "label", info.Label, "samples", info.Samples,
		"threshold", info.Threshold, "junk", len(info.Junk))
	return info, nil
}

// junkGroups keeps table order; a size equal to the threshold is kept.
func junkGroups(groups []GroupSize, threshold float64) []string {
	junk := []string{}
	for _, g := range groups {
		if float64(g.Size) < threshold {
			junk = append(junk, g.Group)
		}
	}
	return junk
}

type columns struct {
	label int
	group int
	otus  []int
}

func resolveColumns(header []string, name string, opts Options) (columns, error) {
	cols := columns{label: -1, group: -1}
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == opts.LabelColumn:
			cols.label = i
		case h == opts.GroupColumn:
			cols.group = i
		case h == opts.CountColumn:
		case strings.Contains(h, opts.OTUPrefix):
			cols.otus = append(cols.otus, i)
		}
	}
	if cols.label < 0 {
		return cols, &mothulity.ParseError{Path: name, Column: opts.LabelColumn, Reason: "required column missing"}
	}
	if cols.group < 0 {
		return cols, &mothulity.ParseError{Path: name, Column: opts.GroupColumn, Reason: "required column missing"}
	}
	if len(cols.otus) == 0 {
		return cols, &mothulity.ParseError{Path: name, Column: opts.OTUPrefix + "*", Reason: "no OTU columns"}
	}
	return cols, nil
}

// parseCount accepts non-negative integers, including integral float
// spellings such as "12.0" or "1e3".
func parseCount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, fmt.Errorf("not a non-negative integer count: %q", s)
	}
	return int64(f), nil
}

func readError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &mothulity.ParseError{Path: name, Row: pe.Line, Reason: pe.Err.Error()}
	}
	return fmt.Errorf("%w: read %s: %w", mothulity.ErrIO, name, err)
}
