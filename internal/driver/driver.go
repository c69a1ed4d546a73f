// Package driver orchestrates a full merge run: diffing a parent map
// against each of its children, merging the resulting deltas, falling
// back to conflict-resolution VisGroups when the merger can't reconcile
// everything automatically, and applying the result to the parent.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/darthryking/VMFMergeTool/internal/delta"
	"github.com/darthryking/VMFMergeTool/internal/differ"
	"github.com/darthryking/VMFMergeTool/internal/merger"
	"github.com/darthryking/VMFMergeTool/internal/resolve"
	"github.com/darthryking/VMFMergeTool/vmf"
)

// Progress reports merge progress as a fraction step/total, with message
// describing the current stage. Implementations must tolerate being
// called from a single goroutine only; the driver never calls it
// concurrently.
type Progress interface {
	Report(message string, step, total int)
}

// NopProgress discards all progress reports.
type NopProgress struct{}

func (NopProgress) Report(string, int, int) {}

// numFixedSteps counts the driver's steps that aren't per-child: merging
// the diffed deltas, resolving conflicts (if any), and applying the
// result.
const numFixedSteps = 3

// ChildSummary reports one child's contribution to a merge run.
type ChildSummary struct {
	Path       string
	DeltaCount int
}

// Result summarizes a completed merge run, suitable for driving a
// --report sidecar or a final log line.
type Result struct {
	CorrelationID string
	ParentPath    string
	ChildPaths    []string
	OutputPath    string
	DeltaCount    int
	ConflictCount int
	HadConflicts  bool
	// Children reports each child's own diffed delta count, in the order
	// children were passed to Run. These counts are taken before merging
	// and do not sum to DeltaCount.
	Children []ChildSummary
	// ManualMergeVisGroups lists the names of every conflict-resolution
	// VisGroup Run created, in creation order. Empty unless HadConflicts.
	ManualMergeVisGroups []string
}

// Options controls a Run's behavior beyond which maps to merge.
type Options struct {
	// OutputPath overrides the default "<parent>_merged.vmf" collision-
	// avoided naming scheme.
	OutputPath string
	// Backup, if non-empty, is written with the parent's pre-merge
	// contents before the merged result is saved to OutputPath. The
	// parent's own file is not modified.
	Backup string
}

// Run diffs parent against each of children, merges the result, applies
// it to parent, and writes the merged map out. Conflicts are never fatal:
// when the merger reports them, Run builds conflict-resolution VisGroups
// via the resolve package and applies the partial merge plus those
// VisGroups instead.
func Run(ctx context.Context, parent *vmf.Map, children []*vmf.Map, opts Options, progress Progress) (*Result, error) {
	if progress == nil {
		progress = NopProgress{}
	}

	correlationID := uuid.New().String()
	log := slog.With("correlation_id", correlationID, "op", "merge")
	p := message.NewPrinter(language.English)

	total := numFixedSteps + len(children)
	step := 0
	report := func(msg string) {
		step++
		progress.Report(msg, step, total)
	}

	log.Info("merge started", "parent", parent.Path(), "children", len(children))

	deltaLists := make([][]delta.Delta, 0, len(children))
	childPaths := make([]string, 0, len(children))
	childSummaries := make([]ChildSummary, 0, len(children))

	for _, child := range children {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		childPaths = append(childPaths, child.Path())
		report(fmt.Sprintf("diffing %s against %s", child.Filename(), parent.Filename()))

		deltas, err := differ.Diff(parent, child, child.Filename())
		if err != nil {
			return nil, fmt.Errorf("diffing %s: %w", child.Path(), err)
		}
		log.Info("diffed child", "child", child.Path(), "deltas", p.Sprintf("%d", len(deltas)))
		deltaLists = append(deltaLists, deltas)
		childSummaries = append(childSummaries, ChildSummary{Path: child.Path(), DeltaCount: len(deltas)})
	}

	report("merging deltas")
	mergedDeltas, mergeErr := merger.Merge(deltaLists)

	var conflictCount int
	var conflictErr *merger.ConflictError
	var visGroupNames []string
	if mergeErr != nil {
		ce, ok := mergeErr.(*merger.ConflictError)
		if !ok {
			return nil, fmt.Errorf("merging: %w", mergeErr)
		}
		conflictErr = ce
		conflictCount = len(ce.Conflicted)

		report(p.Sprintf("resolving %d conflict(s)", conflictCount))
		log.Warn("merge conflicts detected", "count", conflictCount)
		for _, d := range ce.Conflicted {
			log.Warn("conflicted delta", "origin", d.Origin(), "kind", d.Kind(), "target", d.Equiv())
		}

		resolutionDeltas, names, err := resolve.Create(parent, ce.Conflicted)
		if err != nil {
			return nil, fmt.Errorf("building conflict resolution VisGroups: %w", err)
		}
		visGroupNames = names

		mergedDeltas = append(ce.Partial, resolutionDeltas...)
	} else {
		report("no conflicts")
	}

	report("applying merged deltas")
	if err := parent.ApplyDeltas(mergedDeltas, true); err != nil {
		return nil, fmt.Errorf("applying merged deltas: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		outputPath = MergedPath(parent.Path())
	}

	if opts.Backup != "" {
		if err := copyFile(parent.Path(), opts.Backup); err != nil {
			return nil, fmt.Errorf("writing backup: %w", err)
		}
		log.Info("wrote backup", "path", opts.Backup)
	}

	if err := parent.Save(outputPath); err != nil {
		return nil, fmt.Errorf("writing merged map: %w", err)
	}

	log.Info("merge complete", "output", outputPath, "applied", p.Sprintf("%d", len(mergedDeltas)))

	result := &Result{
		CorrelationID:        correlationID,
		ParentPath:           parent.Path(),
		ChildPaths:           childPaths,
		OutputPath:           outputPath,
		DeltaCount:           len(mergedDeltas),
		ConflictCount:        conflictCount,
		HadConflicts:         conflictErr != nil,
		Children:             childSummaries,
		ManualMergeVisGroups: visGroupNames,
	}
	return result, nil
}

// MergedPath derives the output path for a merged map from its parent's
// path, avoiding collisions with any file that already exists by
// appending an increasing numeric suffix: foo_merged.vmf, then
// foo_merged_0.vmf, foo_merged_1.vmf, and so on.
func MergedPath(parentPath string) string {
	dir := filepath.Dir(parentPath)
	base := filepath.Base(parentPath)
	name := strings.TrimSuffix(base, vmf.Extension)

	candidate := filepath.Join(dir, name+"_merged"+vmf.Extension)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}

	for i := 0; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_merged_%d%s", name, i, vmf.Extension))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
