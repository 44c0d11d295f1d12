// Command mothulity prepares a mothur analysis script from a shared file
// and aggregates the HTML sub-reports of a run into one report.
//
// Usage:
//
//	mothulity analyze run.shared
//	zcat run.shared.gz | mothulity analyze -
//	mothulity script run.shared -o analysis.batch
//	mothulity compose --krona krona.html --summary summary.html \
//	    --rarefaction rarefaction.html --nmds nmds.html --shared run.shared -o report.html
//	mothulity config set mothulity.ini mothur path=/opt/mothur
//
// Without --config, mothulity.yaml next to the executable is used when present.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/mothulity/inistore"
	"github.com/hazyhaar/mothulity/pathutil"
	"github.com/hazyhaar/mothulity/report"
	"github.com/hazyhaar/mothulity/shared"
)

const (
	defaultConfigName = "mothulity.yaml"
	stdinPath         = "-"
)

type app struct {
	configPath string
	logLevel   string

	logger *slog.Logger
	cfg    *report.Config
}

func main() {
	a := &app{}
	if err := a.root().Execute(); err != nil {
		if a.logger != nil {
			a.logger.Error("mothulity: fatal", "error", err)
		}
		os.Exit(1)
	}
}

func (a *app) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "mothulity",
		Short:         "Prepare mothur analyses and aggregate their HTML reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(a.analyzeCmd(), a.scriptCmd(), a.composeCmd(), a.configCmd())
	return root
}

func (a *app) setup() error {
	var level slog.Level
	switch a.logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	a.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	path := a.configPath
	if path == "" {
		p, err := pathutil.SelfDir(defaultConfigName)
		if err != nil {
			a.logger.Debug("mothulity: executable directory unknown", "error", err)
		} else if _, err := os.Stat(p); err == nil {
			path = p
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", p, err)
		}
	}
	if path == "" {
		a.cfg = report.DefaultConfig()
		return nil
	}

	cfg, err := report.LoadConfig(path)
	if err != nil {
		return err
	}
	a.logger.Debug("mothulity: config loaded", "path", path)
	a.cfg = cfg
	return nil
}

func (a *app) composer() (*report.Composer, error) {
	return report.New(a.cfg, a.logger)
}

// analyze reads the shared file at path, or standard input when path is "-".
func analyze(c *report.Composer, cmd *cobra.Command, path string) (*shared.Info, error) {
	if path == stdinPath {
		return c.AnalyzeReader(cmd.InOrStdin(), "stdin")
	}
	return c.Analyze(path)
}

func (a *app) analyzeCmd() *cobra.Command {
	var minFold float64
	cmd := &cobra.Command{
		Use:   "analyze <shared|->",
		Short: "Print group sizes and under-sampled groups of a shared file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("min-fold") {
				a.cfg.MinFold = minFold
			}
			c, err := a.composer()
			if err != nil {
				return err
			}
			info, err := analyze(c, cmd, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	cmd.Flags().Float64Var(&minFold, "min-fold", 5, "groups smaller than mean/min-fold are removed")
	return cmd
}

func (a *app) scriptCmd() *cobra.Command {
	var out, jobName string
	var processors int
	cmd := &cobra.Command{
		Use:   "script <shared>",
		Short: "Render the mothur analysis script for a shared file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobName != "" {
				a.cfg.JobName = jobName
			}
			if cmd.Flags().Changed("processors") {
				a.cfg.Processors = processors
			}
			c, err := a.composer()
			if err != nil {
				return err
			}
			info, err := c.Script(args[0], out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: label %s, %d samples, junk [%s]\n",
				out, info.Label, info.Samples, info.CompactJunk())
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "analysis.batch", "script output path")
	cmd.Flags().StringVarP(&jobName, "job-name", "n", "", "job name (default: shared file name)")
	cmd.Flags().IntVarP(&processors, "processors", "p", 1, "processors passed to mothur")
	return cmd
}

func (a *app) composeCmd() *cobra.Command {
	var in report.Inputs
	var out, sharedPath, jobName string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Aggregate HTML sub-reports into one report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobName != "" {
				a.cfg.JobName = jobName
			} else if a.cfg.JobName == "" && sharedPath != "" && sharedPath != stdinPath {
				a.cfg.JobName = pathutil.Name(sharedPath, false)
			}
			c, err := a.composer()
			if err != nil {
				return err
			}
			if sharedPath != "" {
				info, err := analyze(c, cmd, sharedPath)
				if err != nil {
					return err
				}
				in.Info = info
			}
			if err := c.Compose(in, out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Krona, "krona", "", "Krona chart page")
	f.StringVar(&in.Summary, "summary", "", "alpha-diversity summary table page")
	f.StringVar(&in.Rarefaction, "rarefaction", "", "rarefaction plot page")
	f.StringVar(&in.NMDS, "nmds", "", "NMDS plot page")
	f.StringVar(&sharedPath, "shared", "", "shared file the report describes (- for stdin)")
	f.StringVarP(&jobName, "job-name", "n", "", "job name (default: shared or output file name)")
	f.StringVarP(&out, "output", "o", "report.html", "report output path")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Edit an ini config file",
	}

	var clean bool
	set := &cobra.Command{
		Use:   "set <file> <section> <key=value>...",
		Short: "Set options of a section; the file must already exist",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys, values []string
			for _, kv := range args[2:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("expected key=value, got %q", kv)
				}
				keys = append(keys, k)
				values = append(values, v)
			}
			res, err := inistore.Set(args[0], args[1], keys, values, clean)
			if err != nil {
				return err
			}
			if !res.Applied {
				a.logger.Warn("mothulity: config file absent, nothing written", "path", args[0])
				return nil
			}
			a.logger.Info("mothulity: config updated", "path", args[0], "section", args[1],
				"keys", len(keys), "created", res.Created)
			return nil
		},
	}
	set.Flags().BoolVar(&clean, "clean", false, "drop the section's existing options first")

	get := &cobra.Command{
		Use:   "get <file> <section> <key>",
		Short: "Print one option",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, ok, err := inistore.Get(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: [%s] %s not set", args[0], args[1], args[2])
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}

	cmd.AddCommand(set, get)
	return cmd
}
