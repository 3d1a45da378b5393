// Package dashboard derives read-only summary numbers and rankings from
// static datasets.
package dashboard

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnknownOp      = errors.New("unknown aggregate op")
	ErrUnknownDataset = errors.New("unknown dataset")
)

// Row is one labelled data point, e.g. a weekday or a production line.
type Row struct {
	Label  string             `json:"label"`
	Values map[string]float64 `json:"values"`
}

// Dataset is an ordered list of rows.
type Dataset struct {
	Name string `json:"name"`
	Rows []Row  `json:"rows"`
}

// Op is an aggregate operation.
type Op string

const (
	OpSum   Op = "sum"
	OpAvg   Op = "avg"
	OpMin   Op = "min"
	OpMax   Op = "max"
	OpCount Op = "count"
	// OpRatio is sum(Key) / sum(Of) * 100.
	OpRatio Op = "ratio"
)

// Ops lists the supported operations.
var Ops = []Op{OpSum, OpAvg, OpMin, OpMax, OpCount, OpRatio}

// Metric selects what Aggregate computes.
type Metric struct {
	Op  Op     `json:"op"`
	Key string `json:"key"`
	Of  string `json:"of,omitempty"`
}

// Aggregate computes m over ds. An empty dataset yields 0, as does a ratio
// whose denominator sums to 0.
func Aggregate(ds Dataset, m Metric) (float64, error) {
	switch m.Op {
	case OpSum, OpAvg, OpMin, OpMax, OpCount, OpRatio:
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOp, m.Op)
	}
	if len(ds.Rows) == 0 {
		return 0, nil
	}
	switch m.Op {
	case OpCount:
		return float64(len(ds.Rows)), nil
	case OpSum:
		return sum(ds, m.Key), nil
	case OpAvg:
		return sum(ds, m.Key) / float64(len(ds.Rows)), nil
	case OpMin, OpMax:
		best := ds.Rows[0].Values[m.Key]
		for _, r := range ds.Rows[1:] {
			v := r.Values[m.Key]
			if (m.Op == OpMin && v < best) || (m.Op == OpMax && v > best) {
				best = v
			}
		}
		return best, nil
	default:
		den := sum(ds, m.Of)
		if den == 0 {
			return 0, nil
		}
		return sum(ds, m.Key) / den * 100, nil
	}
}

func sum(ds Dataset, key string) float64 {
	var total float64
	for _, r := range ds.Rows {
		total += r.Values[key]
	}
	return total
}

// TopN returns the n rows with the highest key value, ties kept in their
// original order. n <= 0 or n > len returns every row sorted. The input is
// not modified.
func TopN(ds Dataset, n int, key string) Dataset {
	rows := make([]Row, len(ds.Rows))
	copy(rows, ds.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Values[key] > rows[j].Values[key]
	})
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	return Dataset{Name: ds.Name, Rows: rows}
}

// OEE combines availability, performance and quality percentages into an
// overall equipment effectiveness percentage.
func OEE(availability, performance, quality float64) float64 {
	return availability * performance * quality / 10000
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
