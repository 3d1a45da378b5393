package common

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"pcbaerp/internal/form"
	"pcbaerp/internal/response"
	"pcbaerp/internal/store"
)

// ErrUnsupportedFormat is returned for an export format with no Exporter.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Exporter writes a table to w in one file format.
type Exporter interface {
	ContentType() string
	Extension() string
	Write(w io.Writer, sheet string, headers []string, rows [][]string) error
}

// ExporterFor returns the exporter for format ("csv" or "xlsx"). An empty
// format means csv.
func ExporterFor(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return CSVExporter{}, nil
	case "xlsx":
		return XLSXExporter{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// CSVExporter writes RFC 4180 CSV with a header row.
type CSVExporter struct{}

func (CSVExporter) ContentType() string { return "text/csv" }
func (CSVExporter) Extension() string   { return "csv" }

func (CSVExporter) Write(w io.Writer, _ string, headers []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// XLSXExporter writes a single-sheet workbook with a bold header row.
type XLSXExporter struct{}

func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (XLSXExporter) Extension() string { return "xlsx" }

func (XLSXExporter) Write(w io.Writer, sheet string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		index, err := f.NewSheet(sheet)
		if err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
		f.SetActiveSheet(index)
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	if len(headers) > 0 {
		last, _ := excelize.ColumnNumberToName(len(headers))
		if err := f.SetColWidth(sheet, "A", last, 15); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// Table flattens records into a header row plus one string row per record.
// Columns follow the record's JSON field order; lists of strings are joined
// with "; " and nested values are written as JSON.
func Table[T store.Entity](items []T) ([]string, [][]string, error) {
	headers := form.FieldNames[T]()
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		data, err := json.Marshal(it)
		if err != nil {
			return nil, nil, fmt.Errorf("encode %s: %w", it.Key(), err)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, nil, fmt.Errorf("decode %s: %w", it.Key(), err)
		}
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = cellText(fields[h])
		}
		rows = append(rows, row)
	}
	return headers, rows, nil
}

func cellText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return strings.Join(list, "; ")
	}
	var n json.Number
	if json.Unmarshal(raw, &n) == nil {
		if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return n.String()
	}
	return string(raw)
}

// ExportTo writes the records matching search to w in format and returns
// how many were written.
func (res *Resource[T]) ExportTo(ctx context.Context, w io.Writer, format, search string) (int, error) {
	exp, err := ExporterFor(format)
	if err != nil {
		return 0, err
	}
	items, err := res.Repo().List(ctx, search)
	if err != nil {
		return 0, err
	}
	headers, rows, err := Table(items)
	if err != nil {
		return 0, err
	}
	if err := exp.Write(w, res.Module, headers, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Export handles GET /{Path}/export?format=csv|xlsx&search=.
func (res *Resource[T]) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	exp, err := ExporterFor(format)
	if err != nil {
		response.ErrCode(w, err.Error(), response.CodeUnsupported, http.StatusBadRequest)
		return
	}
	search := r.URL.Query().Get("search")

	// Render into memory first so a failure can still produce a JSON error.
	var buf bytes.Buffer
	n, err := res.ExportTo(r.Context(), &buf, exp.Extension(), search)
	if err != nil {
		res.fail(w, r, err)
		return
	}
	if res.env.Audit != nil {
		res.env.Audit.LogExport(r.Context(), res.Module, exp.Extension(), n)
	}
	w.Header().Set("Content-Type", exp.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", res.Path, exp.Extension()))
	_, _ = buf.WriteTo(w)
}

// Exportable is a collection the CLI export command can write out.
type Exportable interface {
	ExportTo(ctx context.Context, w io.Writer, format, search string) (int, error)
}

// SortedNames returns the keys of m in order.
func SortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
