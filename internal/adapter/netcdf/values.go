package netcdf

import (
	"fmt"
	"math"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// flatten converts a numeric scalar or slice of any NetCDF element type
// into float64s.
func flatten(v any) ([]float64, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		x, err := number(rv)
		if err != nil {
			return nil, err
		}
		return []float64{x}, nil
	}
	out := make([]float64, rv.Len())
	for i := range out {
		x, err := number(rv.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

// matrix converts a two-dimensional numeric slice into float64 rows.
func matrix(v any) ([][]float64, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("unexpected %T, want a 2-D array", v)
	}
	out := make([][]float64, rv.Len())
	for i := range out {
		row := rv.Index(i)
		if row.Kind() != reflect.Slice {
			return nil, fmt.Errorf("unexpected %T, want a 2-D array", v)
		}
		f, err := flatten(row.Interface())
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

func number(v reflect.Value) (float64, error) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		return float64(v.Int()), nil
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return float64(v.Uint()), nil
	default:
		return 0, fmt.Errorf("unexpected element kind %s", v.Kind())
	}
}

// packing holds the CF packing attributes of one variable.
type packing struct {
	scale   float64
	offset  float64
	fill    float64
	hasFill bool
}

func packingOf(attrs api.AttributeMap) packing {
	p := packing{scale: 1}
	if attrs == nil {
		return p
	}
	if x, ok := attrNumber(attrs, "scale_factor"); ok {
		p.scale = x
	}
	if x, ok := attrNumber(attrs, "add_offset"); ok {
		p.offset = x
	}
	if x, ok := attrNumber(attrs, "_FillValue"); ok {
		p.fill, p.hasFill = x, true
	} else if x, ok := attrNumber(attrs, "missing_value"); ok {
		p.fill, p.hasFill = x, true
	}
	return p
}

// unpack applies scale and offset. Fill values and non-finite inputs become NaN.
func (p packing) unpack(raw float64) float64 {
	if p.hasFill && raw == p.fill {
		return math.NaN()
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return math.NaN()
	}
	return raw*p.scale + p.offset
}

func attrNumber(attrs api.AttributeMap, key string) (float64, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	f, err := flatten(v)
	if err != nil || len(f) == 0 {
		return 0, false
	}
	return f[0], true
}
