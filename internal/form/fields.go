package form

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"pcbaerp/internal/store"
	"pcbaerp/internal/validation"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// fieldIndex caches json name -> struct field index per record type.
var fieldIndex sync.Map // map[reflect.Type]map[string]int

func jsonFields(t reflect.Type) map[string]int {
	if m, ok := fieldIndex.Load(t); ok {
		return m.(map[string]int)
	}
	m := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		m[name] = i
	}
	fieldIndex.Store(t, m)
	return m
}

// FieldNames returns the JSON names settable on records of type T.
func FieldNames[T store.Entity]() []string {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := jsonFields(t)
	out := make([]string, 0, len(m))
	for i := 0; i < t.NumField(); i++ {
		for name, idx := range m {
			if idx == i {
				out = append(out, name)
			}
		}
	}
	return out
}

// UpdateField replaces one field of the draft record, addressed by its JSON
// name. Numeric input that does not parse becomes zero.
func UpdateField[T store.Entity](d *Draft[T], name string, value any) error {
	if d.closed {
		return ErrDraftClosed
	}
	rv := reflect.ValueOf(&d.Record).Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%s: %w", name, ErrUnknownField)
	}
	idx, ok := jsonFields(rv.Type())[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrUnknownField)
	}
	if err := setValue(rv.Field(idx), value); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func setValue(f reflect.Value, value any) error {
	if f.Type() == decimalType {
		f.Set(reflect.ValueOf(parseDecimal(value)))
		return nil
	}
	switch f.Kind() {
	case reflect.String:
		f.SetString(asString(value))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := parseFloat(value)
		if n >= math.MaxInt64 || n < math.MinInt64 {
			n = 0
		}
		f.SetInt(int64(n))
	case reflect.Float32, reflect.Float64:
		f.SetFloat(parseFloat(value))
	case reflect.Bool:
		b, _ := strconv.ParseBool(asString(value))
		if v, ok := value.(bool); ok {
			b = v
		}
		f.SetBool(b)
	case reflect.Slice:
		if f.Type().Elem().Kind() == reflect.String {
			f.Set(reflect.ValueOf(asStrings(value)).Convert(f.Type()))
			return nil
		}
		return setJSON(f, value)
	default:
		return setJSON(f, value)
	}
	return nil
}

func setJSON(f reflect.Value, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	ptr := reflect.New(f.Type())
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	f.Set(ptr.Elem())
	return nil
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// parseFloat parses numeric input, returning 0 for anything unparseable,
// NaN or infinite.
func parseFloat(value any) float64 {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		n, _ = v.Float64()
	case string:
		n, _ = strconv.ParseFloat(strings.TrimSpace(v), 64)
	case decimal.Decimal:
		n = v.InexactFloat64()
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

func parseDecimal(value any) decimal.Decimal {
	switch v := value.(type) {
	case decimal.Decimal:
		return v
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.NewFromFloat(parseFloat(value))
	}
}

// asStrings accepts a list or comma separated text. Blank entries are dropped.
func asStrings(value any) []string {
	var raw []string
	switch v := value.(type) {
	case nil:
	case []string:
		raw = v
	case []any:
		for _, it := range v {
			raw = append(raw, asString(it))
		}
	case string:
		raw = strings.Split(v, ",")
	default:
		raw = []string{asString(v)}
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// requireFields adds an "is required" error for every named field still at
// its zero value. Whitespace-only strings and empty lists count as zero.
func requireFields[T store.Entity](ve *validation.ValidationErrors, rec T, names []string) {
	rv := reflect.ValueOf(rec)
	if rv.Kind() != reflect.Struct {
		return
	}
	idx := jsonFields(rv.Type())
	for _, name := range names {
		i, ok := idx[name]
		if !ok {
			continue
		}
		f := rv.Field(i)
		empty := f.IsZero()
		switch {
		case f.Type() == decimalType:
			empty = f.Interface().(decimal.Decimal).IsZero()
		case f.Kind() == reflect.String:
			empty = strings.TrimSpace(f.String()) == ""
		case f.Kind() == reflect.Slice:
			empty = f.Len() == 0
		}
		if empty {
			ve.Add(name, "is required")
		}
	}
}
