package dataprep

import (
	"fmt"
	"strings"
)

// MissingFieldError reports a required column that is absent or empty.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %s", e.Field)
}

// InvalidValueError reports a value that cannot be read as a finite number.
type InvalidValueError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidValueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid value %q for %s", e.Value, e.Field)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

// UnknownCategoryError reports a categorical label the schema was not trained on.
type UnknownCategoryError struct {
	Field string
	Value string
	Known []string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown %s %q (known: %s)", e.Field, e.Value, strings.Join(e.Known, ", "))
}

// IncompleteVectorError reports positions holding the missing-value marker,
// e.g. calendar fields of an unparsable timestamp.
type IncompleteVectorError struct {
	Fields []string
}

func (e *IncompleteVectorError) Error() string {
	return fmt.Sprintf("missing values for %s", strings.Join(e.Fields, ", "))
}

// RowError locates a preprocessing failure in a batch.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %v", e.Row, e.Err) }

func (e *RowError) Unwrap() error { return e.Err }
