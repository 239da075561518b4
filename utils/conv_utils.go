package utils

import (
	"reflect"
	"strconv"
)

// IsNumber reports whether v holds a Go numeric kind
func IsNumber(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// ToFloat64 converts various types to float64
// Handles different database driver representations:
// - float32/float64: direct conversion
// - signed/unsigned integers: conversion
// - string/[]byte: parsing
// - bool: true = 1.0, false = 0.0
// - nil: 0.0
func ToFloat64(v any) float64 {
	if v == nil {
		return 0.0
	}

	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case bool:
		if val {
			return 1.0
		}
		return 0.0
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return 0.0
	case []byte:
		return ToFloat64(string(val))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	default:
		return 0.0
	}
}

// ValuesEqual compares two scalar values the way a database comparison would:
// numbers compare by value regardless of their Go width, []byte compares as a
// string, everything else uses deep equality.
func ValuesEqual(a, b any) bool {
	if IsNumber(a) && IsNumber(b) {
		return ToFloat64(a) == ToFloat64(b)
	}
	if ab, ok := a.([]byte); ok {
		a = string(ab)
	}
	if bb, ok := b.([]byte); ok {
		b = string(bb)
	}
	return reflect.DeepEqual(a, b)
}
