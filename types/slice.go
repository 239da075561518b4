package types

import (
	"context"
	"fmt"
	"reflect"
)

// Slice is an in-memory collection of records
type Slice struct {
	model    string
	records  []Record
	elemType reflect.Type
}

// NewSlice creates a collection of records of model
func NewSlice(model string, records ...Record) *Slice {
	return &Slice{model: model, records: records}
}

// SliceOf builds a collection from a Go slice whose elements implement Record.
// The model name comes from the first element when model is empty.
func SliceOf(model string, items any) (*Slice, error) {
	rv := reflect.ValueOf(items)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: %T is not a slice", ErrUnsupportedCollection, items)
	}

	records := make([]Record, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		record, ok := rv.Index(i).Interface().(Record)
		if !ok {
			return nil, fmt.Errorf("%w: element %d of %T is not a record", ErrUnsupportedCollection, i, items)
		}
		records = append(records, record)
	}

	if model == "" && len(records) > 0 {
		model = records[0].ModelName()
	}
	s := NewSlice(model, records...)
	if elem := rv.Type().Elem(); elem.Kind() != reflect.Interface {
		s.elemType = elem
	}
	return s, nil
}

func (s *Slice) Model() string {
	return s.model
}

// RecordType returns the element type of the source slice, or the type of
// the first member when the slice held interfaces.
func (s *Slice) RecordType() reflect.Type {
	if s.elemType != nil {
		return s.elemType
	}
	if len(s.records) == 0 {
		return nil
	}
	return reflect.TypeOf(s.records[0])
}

func (s *Slice) Records(ctx context.Context) ([]Record, error) {
	return append([]Record(nil), s.records...), nil
}

func (s *Slice) Len() int {
	return len(s.records)
}
