package dashboard

import (
	"errors"
	"math"
	"testing"
)

func labels(ds Dataset) []string {
	out := make([]string, len(ds.Rows))
	for i, r := range ds.Rows {
		out[i] = r.Label
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAggregate(t *testing.T) {
	lines := LineOutput()
	tests := []struct {
		name string
		ds   Dataset
		m    Metric
		want float64
	}{
		{"sum", lines, Metric{Op: OpSum, Key: "pass"}, 4285},
		{"count", lines, Metric{Op: OpCount}, 4},
		{"avg", OEEByLine(), Metric{Op: OpAvg, Key: "value"}, 85.75},
		{"min", Yield(), Metric{Op: OpMin, Key: "fpy"}, 96.8},
		{"max", Yield(), Metric{Op: OpMax, Key: "fpy"}, 99.1},
		{"ratio", lines, Metric{Op: OpRatio, Key: "fail", Of: "input"}, 14.0 / 4299.0 * 100},
		{"missing key sums to zero", lines, Metric{Op: OpSum, Key: "nope"}, 0},
		{"ratio zero denominator", lines, Metric{Op: OpRatio, Key: "pass", Of: "nope"}, 0},
		{"empty dataset", Dataset{}, Metric{Op: OpAvg, Key: "fpy"}, 0},
		{"empty dataset count", Dataset{}, Metric{Op: OpCount}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(tt.ds, tt.m)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !near(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAggregate_UnknownOp(t *testing.T) {
	_, err := Aggregate(Dataset{}, Metric{Op: "median", Key: "fpy"})
	if !errors.Is(err, ErrUnknownOp) {
		t.Errorf("Expected ErrUnknownOp, got %v", err)
	}
}

func TestTopN_StableDescending(t *testing.T) {
	ds := Dataset{Rows: []Row{
		{"a", map[string]float64{"v": 1}},
		{"b", map[string]float64{"v": 5}},
		{"c", map[string]float64{"v": 3}},
		{"d", map[string]float64{"v": 5}},
		{"e", map[string]float64{"v": 3}},
	}}
	got := labels(TopN(ds, 3, "v"))
	want := []string{"b", "d", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, got)
		}
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(got))
	}
	if labels(ds)[0] != "a" {
		t.Error("TopN must not reorder its input")
	}
}

func TestTopN_Bounds(t *testing.T) {
	ds := DefectPareto()
	for _, n := range []int{0, -1, 99} {
		got := TopN(ds, n, "count")
		if len(got.Rows) != len(ds.Rows) {
			t.Errorf("n=%d: expected %d rows, got %d", n, len(ds.Rows), len(got.Rows))
		}
	}
	if got := TopN(Dataset{}, 3, "count"); len(got.Rows) != 0 {
		t.Errorf("Expected empty result, got %v", got.Rows)
	}
	top := TopN(OEEByLine(), 1, "value")
	if top.Rows[0].Label != "Line C" {
		t.Errorf("Expected Line C, got %s", top.Rows[0].Label)
	}
}

func TestOEE(t *testing.T) {
	if got := OEE(100, 100, 100); !near(got, 100) {
		t.Errorf("Expected 100, got %v", got)
	}
	if got := Round(OEE(92, 95, 98), 3); got != 85.652 {
		t.Errorf("Expected 85.652, got %v", got)
	}
}

func TestKPIs(t *testing.T) {
	want := map[string]float64{"production": 4285, "yield": 98.2, "defects": 14, "oee": 82.6}
	kpis := KPIs()
	if len(kpis) != len(want) {
		t.Fatalf("Expected %d KPIs, got %d", len(want), len(kpis))
	}
	for _, k := range kpis {
		if !near(k.Value, want[k.ID]) {
			t.Errorf("%s: expected %v, got %v", k.ID, want[k.ID], k.Value)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		ds, err := Lookup(name)
		if err != nil || ds.Name != name {
			t.Errorf("Lookup(%q) = %v, %v", name, ds.Name, err)
		}
	}
	if _, err := Lookup("nope"); !errors.Is(err, ErrUnknownDataset) {
		t.Errorf("Expected ErrUnknownDataset, got %v", err)
	}
}
