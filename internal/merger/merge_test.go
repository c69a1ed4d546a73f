package merger

import (
	"fmt"
	"sort"
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"

	"github.com/darthryking/VMFMergeTool/internal/delta"
)

// sorted returns deltas in a deterministic order so two delta slices can
// be compared for set-equality regardless of merge-internal ordering,
// mirroring testmerge.py's use of a Python set() for comparison.
func sorted(deltas []delta.Delta) []delta.Delta {
	out := append([]delta.Delta(nil), deltas...)
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprintf("%#v", out[i]) < fmt.Sprintf("%#v", out[j])
	})
	return out
}

func assertSameDeltas(t *testing.T, got, want []delta.Delta) {
	t.Helper()
	if diff := cmp.Diff(sorted(want), sorted(got)); diff != "" {
		t.Errorf("deltas mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeBasicNoOverlap(t *testing.T) {
	deltas1 := []delta.Delta{delta.AddObject{Class: "solid", ID: 1}}
	deltas2 := []delta.Delta{delta.AddObject{Class: "solid", ID: 2}}

	got, err := Merge([][]delta.Delta{deltas1, deltas2})
	qt.Assert(t, qt.IsNil(err))

	assertSameDeltas(t, got, []delta.Delta{
		delta.AddObject{Class: "solid", ID: 1},
		delta.AddObject{Class: "solid", ID: 2},
	})
}

func TestMergeOverlapSameChangeMergesCleanly(t *testing.T) {
	deltas1 := []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 1},
		delta.ChangeObject{Class: "solid", ID: 2},
		delta.ChangeObject{Class: "solid", ID: 3},
	}
	deltas2 := []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 2},
		delta.ChangeObject{Class: "solid", ID: 3},
		delta.ChangeObject{Class: "solid", ID: 4},
	}

	got, err := Merge([][]delta.Delta{deltas1, deltas2})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	assertSameDeltas(t, got, []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 1},
		delta.ChangeObject{Class: "solid", ID: 2},
		delta.ChangeObject{Class: "solid", ID: 3},
		delta.ChangeObject{Class: "solid", ID: 4},
	})
}

func TestMergeOverlapThreeWay(t *testing.T) {
	deltas1 := []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 1},
		delta.ChangeObject{Class: "solid", ID: 2},
		delta.ChangeObject{Class: "solid", ID: 3},
	}
	deltas2 := []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 2},
		delta.ChangeObject{Class: "solid", ID: 3},
		delta.ChangeObject{Class: "solid", ID: 4},
	}
	deltas3 := []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 3},
		delta.ChangeObject{Class: "solid", ID: 4},
		delta.ChangeObject{Class: "solid", ID: 5},
	}

	got, err := Merge([][]delta.Delta{deltas1, deltas2, deltas3})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	assertSameDeltas(t, got, []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 1},
		delta.ChangeObject{Class: "solid", ID: 2},
		delta.ChangeObject{Class: "solid", ID: 3},
		delta.ChangeObject{Class: "solid", ID: 4},
		delta.ChangeObject{Class: "solid", ID: 5},
	})
}

func TestMergeChangeVsRemoveConflicts(t *testing.T) {
	deltas1 := []delta.Delta{delta.ChangeObject{Class: "solid", ID: 1}}
	deltas2 := []delta.Delta{delta.RemoveObject{Class: "solid", ID: 1}}

	_, err := Merge([][]delta.Delta{deltas1, deltas2})
	qt.Assert(t, qt.IsNotNil(err))

	var ce *ConflictError
	qt.Assert(t, qt.ErrorAs(err, &ce))

	// The RemoveObject itself conflicts out of the merged result too: once
	// a ChangeObject collides with it, add_conflicted_delta pulls the
	// RemoveObject back out of the merged set and into the conflict set
	// alongside it, leaving nothing behind to apply automatically.
	assertSameDeltas(t, ce.Partial, nil)
	assertSameDeltas(t, ce.Conflicted, []delta.Delta{
		delta.RemoveObject{Class: "solid", ID: 1},
		delta.ChangeObject{Class: "solid", ID: 1},
	})
}

func TestMergeConflictingPropertyValuesCascadeThreeWay(t *testing.T) {
	deltas1 := []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 1},
		delta.AddProperty{Class: "solid", ID: 1, Key: "key", Value: "value1"},
	}
	deltas2 := []delta.Delta{
		delta.ChangeObject{Class: "solid", ID: 1},
		delta.AddProperty{Class: "solid", ID: 1, Key: "key", Value: "value2"},
	}
	deltas3 := []delta.Delta{delta.RemoveObject{Class: "solid", ID: 1}}

	_, err := Merge([][]delta.Delta{deltas1, deltas2, deltas3})
	qt.Assert(t, qt.IsNotNil(err))

	var ce *ConflictError
	qt.Assert(t, qt.ErrorAs(err, &ce))

	// Each of the two ChangeObject deltas collides with the same
	// RemoveObject in turn, so the RemoveObject is dragged into the
	// conflict set twice over (once per collision) and nothing survives
	// into the partial merge. Both AddProperty deltas ride along since
	// their owning ChangeObject is conflicted.
	assertSameDeltas(t, ce.Partial, nil)

	wantConflicted := []delta.Delta{
		delta.RemoveObject{Class: "solid", ID: 1},
		delta.RemoveObject{Class: "solid", ID: 1},
		delta.ChangeObject{Class: "solid", ID: 1},
		delta.ChangeObject{Class: "solid", ID: 1},
		delta.AddProperty{Class: "solid", ID: 1, Key: "key", Value: "value1"},
		delta.AddProperty{Class: "solid", ID: 1, Key: "key", Value: "value2"},
	}
	assertSameDeltas(t, ce.Conflicted, wantConflicted)
}

func TestMergeOutputsWithDifferingValuesBothSurvive(t *testing.T) {
	deltas1 := []delta.Delta{
		delta.AddOutput{EntityID: 42, Output: "OnPressed", Value: "value1", Index: 0},
	}
	deltas2 := []delta.Delta{
		delta.AddOutput{EntityID: 42, Output: "OnPressed", Value: "value2", Index: 0},
	}

	got, err := Merge([][]delta.Delta{deltas1, deltas2})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}

	assertSameDeltas(t, got, []delta.Delta{
		delta.AddOutput{EntityID: 42, Output: "OnPressed", Value: "value1", Index: 0},
		delta.AddOutput{EntityID: 42, Output: "OnPressed", Value: "value2", Index: 0},
	})
}
