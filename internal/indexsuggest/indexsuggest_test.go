package indexsuggest

import (
	"testing"

	"github.com/antikythera/planner/internal/queryanalysis"
)

func demand(table, column string) queryanalysis.AnalysisResult {
	return queryanalysis.AnalysisResult{
		IndexDemands: []queryanalysis.IndexDemand{{Table: table, Column: column, Kind: queryanalysis.DemandWhere}},
	}
}

func demands(table string, columns ...string) queryanalysis.AnalysisResult {
	var ds []queryanalysis.IndexDemand
	for _, c := range columns {
		ds = append(ds, queryanalysis.IndexDemand{Table: table, Column: c, Kind: queryanalysis.DemandWhere})
	}
	return queryanalysis.AnalysisResult{IndexDemands: ds}
}

// Three separate single-column demands that never co-occur in one query
// stay as two singles.
func TestAggregator_NoCoOccurrenceStaysAsSingles(t *testing.T) {
	agg := New(nil, 0)
	agg.Add(demand("patient", "last_name"))
	agg.Add(demand("patient", "last_name"))
	agg.Add(demand("patient", "first_name"))

	set := agg.Finalize()
	singles := set.Singles()
	if len(singles) != 2 {
		t.Fatalf("expected 2 singles, got %+v", singles)
	}
	if len(set.Multis()) != 0 {
		t.Fatalf("expected no multis, got %+v", set.Multis())
	}
	want := map[string]bool{"patient|last_name": true, "patient|first_name": true}
	for _, s := range singles {
		if !want[s] {
			t.Errorf("unexpected single %q", s)
		}
	}
}

// A multi covering a single eliminates the single.
func TestAggregator_CoveringElimination(t *testing.T) {
	agg := New(nil, 4)
	agg.Add(demands("order", "customer_id", "status"))
	agg.Add(demand("order", "customer_id"))

	set := agg.Finalize()
	if len(set.Singles()) != 0 {
		t.Fatalf("expected the single to be eliminated, got %+v", set.Singles())
	}
	if len(set.Multis()) != 1 || set.Multis()[0] != "order|customer_id,status" {
		t.Fatalf("expected the multi to survive, got %+v", set.Multis())
	}
}

func TestAggregator_MaxIndexColumnsClamp(t *testing.T) {
	if clampMaxIndexColumns(0) != defaultMaxIndexColumns {
		t.Errorf("expected default for 0")
	}
	if clampMaxIndexColumns(-5) != defaultMaxIndexColumns {
		t.Errorf("expected default for negative")
	}
	if clampMaxIndexColumns(100) != maxIndexColumnsCap {
		t.Errorf("expected clamp to cap")
	}
	if clampMaxIndexColumns(2) != 2 {
		t.Errorf("expected passthrough for in-range value")
	}
}

func TestAggregator_CapsMultiColumnLength(t *testing.T) {
	agg := New(nil, 2)
	agg.Add(demands("wide", "a", "b", "c", "d"))
	set := agg.Finalize()
	if len(set.Multis()) != 1 || set.Multis()[0] != "wide|a,b" {
		t.Fatalf("expected capped multi wide|a,b, got %+v", set.Multis())
	}
}

// Restoring a checkpoint's accepted keys and continuing produces the
// same set a non-interrupted run would have.
func TestAggregator_RestoreRoundTrip(t *testing.T) {
	first := New(nil, 4)
	first.Add(demands("order", "customer_id", "status"))
	first.Add(demand("patient", "last_name"))
	singles, multis := first.Snapshot()

	resumed := New(nil, 4)
	resumed.Restore(singles, multis)
	resumed.Add(demand("patient", "first_name"))

	uninterrupted := New(nil, 4)
	uninterrupted.Add(demands("order", "customer_id", "status"))
	uninterrupted.Add(demand("patient", "last_name"))
	uninterrupted.Add(demand("patient", "first_name"))

	gotS, gotM := resumed.Snapshot()
	wantS, wantM := uninterrupted.Snapshot()
	if len(gotS) != len(wantS) || len(gotM) != len(wantM) {
		t.Fatalf("resumed (%v, %v) differs from uninterrupted (%v, %v)", gotS, gotM, wantS, wantM)
	}
	for i := range wantS {
		if gotS[i] != wantS[i] {
			t.Errorf("single %d: got %q want %q", i, gotS[i], wantS[i])
		}
	}
	for i := range wantM {
		if gotM[i] != wantM[i] {
			t.Errorf("multi %d: got %q want %q", i, gotM[i], wantM[i])
		}
	}
}

// No multi may remain a strict prefix of another multi on the same table.
func TestAggregator_NoPrefixMultis(t *testing.T) {
	agg := New(nil, 4)
	agg.Add(demands("t", "a", "b"))
	agg.Add(demands("t", "a", "b", "c"))
	set := agg.Finalize()
	if len(set.Multis()) != 1 || set.Multis()[0] != "t|a,b,c" {
		t.Fatalf("expected only the longer multi to survive, got %+v", set.Multis())
	}
}
