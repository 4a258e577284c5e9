package domain

import "math"

// Sentinel values of the output formats.
const (
	NotMeasured = -888888.0
	EndOfRecord = -777777.0
	NoData      = 999999.0
)

// Value is an optional physical quantity.
type Value struct {
	V  float64
	OK bool
}

// Some wraps a measured quantity. NaN and ±Inf are treated as missing.
func Some(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{V: v, OK: true}
}

// None is the missing value.
func None() Value { return Value{} }

// Map applies f to a present value.
func (v Value) Map(f func(float64) float64) Value {
	if !v.OK {
		return v
	}
	return Some(f(v.V))
}

// Or returns the value or def when missing.
func (v Value) Or(def float64) float64 {
	if !v.OK {
		return def
	}
	return v.V
}

// CelsiusToKelvin converts a temperature.
func CelsiusToKelvin(c float64) float64 { return c + 273.15 }

// KnotsToMPS converts a wind speed.
func KnotsToMPS(kt float64) float64 { return kt * 0.514444 }

// HectopascalToPascal converts a pressure.
func HectopascalToPascal(hpa float64) float64 { return hpa * 100 }
