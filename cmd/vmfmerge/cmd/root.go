// Package cmd implements the vmfmerge command-line surface: loading the
// input VMFs, picking a parent, and driving internal/driver to produce
// a merged map.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/darthryking/VMFMergeTool/internal/delta"
	"github.com/darthryking/VMFMergeTool/internal/differ"
	"github.com/darthryking/VMFMergeTool/internal/driver"
	"github.com/darthryking/VMFMergeTool/internal/merger"
	"github.com/darthryking/VMFMergeTool/vmf"
)

var version = "dev"

// Command wraps the root cobra.Command along with the flag values it
// was parsed with, mirroring the flag-holder pattern cmd/cue/cmd uses.
type Command struct {
	*cobra.Command

	noAutoParent   bool
	dumpIndividual bool
	dumpProposed   bool
	aggressive     bool
	verbose        bool
	reportPath     string
	backup         bool
}

// New builds the root vmfmerge command.
func New() *Command {
	c := &Command{}

	cmd := &cobra.Command{
		Use:          "vmfmerge <vmf>...",
		Short:        "three-way (or N-way) structural merge for Valve Map Files",
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.run(args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&c.noAutoParent, "no-auto-parent", "n", false,
		"treat the first path as the parent instead of picking the lowest mapversion")
	flags.BoolVarP(&c.dumpIndividual, "dump-individual", "i", false,
		"print each child's delta list and exit without merging")
	flags.BoolVarP(&c.dumpProposed, "dump-proposed", "p", false,
		"print the merged delta list and exit without writing")
	flags.BoolVarP(&c.aggressive, "aggressive", "A", false,
		"reserved, currently a no-op")
	flags.BoolVarP(&c.verbose, "verbose", "v", false,
		"log each pipeline stage as it runs")
	flags.StringVar(&c.reportPath, "report", "",
		"write a YAML summary of the merge to this path")
	flags.BoolVar(&c.backup, "backup", false,
		"write a copy of the parent to <parent>_old.vmf before merging")

	c.Command = cmd
	return c
}

// Main runs vmfmerge with os.Args and returns the process exit code.
func Main() int {
	if err := New().Command.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vmfmerge:", err)
		return 1
	}
	return 0
}

func (c *Command) run(paths []string) error {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if c.dumpIndividual && c.dumpProposed {
		return fmt.Errorf("--dump-individual and --dump-proposed are mutually exclusive")
	}

	maps, err := loadAll(paths)
	if err != nil {
		return err
	}

	parent, children := selectParent(maps, c.noAutoParent)

	if c.dumpIndividual {
		return c.runDumpIndividual(parent, children)
	}

	deltaLists := make([][]delta.Delta, 0, len(children))
	if c.dumpProposed {
		for _, child := range children {
			deltas, err := differ.Diff(parent, child, child.Filename())
			if err != nil {
				return fmt.Errorf("diffing %s: %w", child.Path(), err)
			}
			deltaLists = append(deltaLists, deltas)
		}
		return c.runDumpProposed(deltaLists)
	}

	opts := driver.Options{}
	if c.backup {
		opts.Backup = backupPath(parent.Path())
	}

	result, err := driver.Run(context.Background(), parent, children, opts, progressPrinter{out: c.ErrOrStderr(), verbose: c.verbose})
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(c.OutOrStdout(), "merged %d delta(s) into %s\n", result.DeltaCount, result.OutputPath)
	if result.HadConflicts {
		p.Fprintf(c.OutOrStdout(), "%d conflict(s) require manual resolution; see the Manual Merge Required VisGroup\n", result.ConflictCount)
	}

	if c.reportPath != "" {
		if err := writeReport(c.reportPath, result); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}

	return nil
}

func (c *Command) runDumpIndividual(parent *vmf.Map, children []*vmf.Map) error {
	for _, child := range children {
		deltas, err := differ.Diff(parent, child, child.Filename())
		if err != nil {
			return fmt.Errorf("diffing %s: %w", child.Path(), err)
		}
		fmt.Fprintf(c.OutOrStdout(), "# %s\n", child.Filename())
		for _, d := range deltas {
			fmt.Fprintln(c.OutOrStdout(), pretty.Sprint(d))
		}
	}
	return nil
}

func (c *Command) runDumpProposed(deltaLists [][]delta.Delta) error {
	merged, err := merger.Merge(deltaLists)
	if err != nil {
		ce, ok := err.(*merger.ConflictError)
		if !ok {
			return fmt.Errorf("merging: %w", err)
		}
		merged = ce.Partial
	}
	for _, d := range merged {
		fmt.Fprintln(c.OutOrStdout(), pretty.Sprint(d))
	}
	return nil
}

func loadAll(paths []string) ([]*vmf.Map, error) {
	maps := make([]*vmf.Map, 0, len(paths))
	for _, path := range paths {
		m, err := vmf.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		maps = append(maps, m)
	}
	return maps, nil
}

// selectParent picks the map with the lowest mapversion as the merge
// parent, unless noAutoParent asks for the first argument instead. The
// remaining maps, in their original order, become the children.
func selectParent(maps []*vmf.Map, noAutoParent bool) (*vmf.Map, []*vmf.Map) {
	parentIndex := 0
	if !noAutoParent {
		lowest := maps[0].Revision()
		for i, m := range maps[1:] {
			if m.Revision() < lowest {
				lowest = m.Revision()
				parentIndex = i + 1
			}
		}
	}

	parent := maps[parentIndex]
	children := make([]*vmf.Map, 0, len(maps)-1)
	for i, m := range maps {
		if i != parentIndex {
			children = append(children, m)
		}
	}
	return parent, children
}

func backupPath(parentPath string) string {
	ext := vmf.Extension
	return parentPath[:len(parentPath)-len(ext)] + "_old" + ext
}

type progressPrinter struct {
	out     interface{ Write([]byte) (int, error) }
	verbose bool
}

func (p progressPrinter) Report(message string, step, total int) {
	if !p.verbose {
		return
	}
	fmt.Fprintf(p.out, "[%d/%d] %s\n", step, total, message)
}

// childReportEntry is one child's contribution to a --report summary.
type childReportEntry struct {
	Path       string `yaml:"path"`
	DeltaCount int    `yaml:"delta_count"`
}

type reportDoc struct {
	CorrelationID        string             `yaml:"correlation_id"`
	Parent               string             `yaml:"parent"`
	Children             []childReportEntry `yaml:"children"`
	Output               string             `yaml:"output"`
	DeltaCount           int                `yaml:"delta_count"`
	ConflictCount        int                `yaml:"conflict_count"`
	HadConflicts         bool               `yaml:"had_conflicts"`
	ManualMergeVisGroups []string           `yaml:"manual_merge_visgroups,omitempty"`
}

func writeReport(path string, result *driver.Result) error {
	children := append([]driver.ChildSummary(nil), result.Children...)
	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })

	childEntries := make([]childReportEntry, len(children))
	for i, child := range children {
		childEntries[i] = childReportEntry{Path: child.Path, DeltaCount: child.DeltaCount}
	}

	doc := reportDoc{
		CorrelationID:        result.CorrelationID,
		Parent:               result.ParentPath,
		Children:             childEntries,
		Output:               result.OutputPath,
		DeltaCount:           result.DeltaCount,
		ConflictCount:        result.ConflictCount,
		HadConflicts:         result.HadConflicts,
		ManualMergeVisGroups: result.ManualMergeVisGroups,
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
