package dashboard

import (
	"fmt"
	"sort"
)

// Dataset names served by the dashboard.
const (
	DatasetYield      = "yield"
	DatasetOEE        = "oee"
	DatasetPareto     = "pareto"
	DatasetLineOutput = "line_output"
)

// Yield is the weekly first-pass-yield trend against a 99% target.
func Yield() Dataset {
	return Dataset{Name: DatasetYield, Rows: []Row{
		{"Mon", map[string]float64{"fpy": 98.2, "loss": 1.8, "target": 99.0}},
		{"Tue", map[string]float64{"fpy": 97.5, "loss": 2.5, "target": 99.0}},
		{"Wed", map[string]float64{"fpy": 99.1, "loss": 0.9, "target": 99.0}},
		{"Thu", map[string]float64{"fpy": 96.8, "loss": 3.2, "target": 99.0}},
		{"Fri", map[string]float64{"fpy": 98.4, "loss": 1.6, "target": 99.0}},
		{"Sat", map[string]float64{"fpy": 99.0, "loss": 1.0, "target": 99.0}},
		{"Sun", map[string]float64{"fpy": 98.7, "loss": 1.3, "target": 99.0}},
	}}
}

// OEEByLine holds OEE and its three factors per SMT line.
func OEEByLine() Dataset {
	return Dataset{Name: DatasetOEE, Rows: []Row{
		{"Line A", map[string]float64{"value": 85, "availability": 92, "performance": 95, "quality": 98}},
		{"Line B", map[string]float64{"value": 78, "availability": 85, "performance": 88, "quality": 97}},
		{"Line C", map[string]float64{"value": 92, "availability": 94, "performance": 98, "quality": 99}},
		{"Line D", map[string]float64{"value": 88, "availability": 90, "performance": 92, "quality": 98}},
	}}
}

// DefectPareto counts the most common defect types.
func DefectPareto() Dataset {
	return Dataset{Name: DatasetPareto, Rows: []Row{
		{"Short Circuit", map[string]float64{"count": 42}},
		{"Missing Comp", map[string]float64{"count": 28}},
		{"Solder Bridge", map[string]float64{"count": 21}},
		{"Wrong Polarity", map[string]float64{"count": 12}},
		{"Insuff Solder", map[string]float64{"count": 8}},
	}}
}

// LineOutput is today's input, pass and fail count per line.
func LineOutput() Dataset {
	return Dataset{Name: DatasetLineOutput, Rows: []Row{
		{"Line 1-SMT", map[string]float64{"input": 1190, "pass": 1185, "fail": 5}},
		{"Line 2-SMT", map[string]float64{"input": 1132, "pass": 1128, "fail": 4}},
		{"Line 3-Box", map[string]float64{"input": 1074, "pass": 1071, "fail": 3}},
		{"Line 4-Cable", map[string]float64{"input": 903, "pass": 901, "fail": 2}},
	}}
}

var catalog = map[string]func() Dataset{
	DatasetYield:      Yield,
	DatasetOEE:        OEEByLine,
	DatasetPareto:     DefectPareto,
	DatasetLineOutput: LineOutput,
}

// Lookup returns the named dataset.
func Lookup(name string) (Dataset, error) {
	fn, ok := catalog[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return fn(), nil
}

// Names lists the available datasets in sorted order.
func Names() []string {
	out := make([]string, 0, len(catalog))
	for n := range catalog {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// KPI is one headline figure on the dashboard.
type KPI struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// KPIs derives the four headline figures from the static datasets.
func KPIs() []KPI {
	lines := LineOutput()
	output, _ := Aggregate(lines, Metric{Op: OpSum, Key: "pass"})
	fpy, _ := Aggregate(Yield(), Metric{Op: OpAvg, Key: "fpy"})
	defects, _ := Aggregate(lines, Metric{Op: OpSum, Key: "fail"})

	var oeeTotal float64
	oee := OEEByLine()
	for _, r := range oee.Rows {
		oeeTotal += OEE(r.Values["availability"], r.Values["performance"], r.Values["quality"])
	}
	avgOEE := 0.0
	if n := len(oee.Rows); n > 0 {
		avgOEE = oeeTotal / float64(n)
	}

	return []KPI{
		{ID: "production", Label: "Output today", Value: output, Unit: "pcs"},
		{ID: "yield", Label: "First pass yield", Value: Round(fpy, 1), Unit: "%"},
		{ID: "defects", Label: "Defects found", Value: defects},
		{ID: "oee", Label: "OEE", Value: Round(avgOEE, 1), Unit: "%"},
	}
}
