package dataprep

import (
	"errors"
	"math"
	"strconv"

	"effpred/pkg/data"
	"effpred/pkg/schema"
)

// FeatureVector is one observation in schema order. NaN marks a missing value.
type FeatureVector []float64

// Missing returns the names of positions holding the missing marker.
func (v FeatureVector) Missing(s *schema.Schema) []string {
	var out []string
	for i, x := range v {
		if math.IsNaN(x) {
			out = append(out, s.Fields[i].Name)
		}
	}
	return out
}

func (v FeatureVector) HasMissing() bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

var errNotFinite = errors.New("not a finite number")

// Preprocessor turns raw records into feature vectors with a frozen schema.
// It never changes the schema, so one instance can be shared across goroutines.
type Preprocessor struct {
	schema *schema.Schema
}

func NewPreprocessor(s *schema.Schema) *Preprocessor {
	return &Preprocessor{schema: s}
}

func (p *Preprocessor) Schema() *schema.Schema { return p.schema }

// Prepare assembles the feature vector of one record.
//
// Calendar fields come from the Timestamp column when the record has one; a
// blank or unparsable timestamp leaves NaN in all of them. Without a Timestamp
// column the calendar fields are read as plain numeric columns. Machine_ID and
// the raw timestamp never reach the vector.
func (p *Preprocessor) Prepare(rec data.Record) (FeatureVector, error) {
	var (
		cal    Calendar
		fields = p.schema.Fields
		vec    = make(FeatureVector, len(fields))
	)
	rawTS, hasTS := rec[schema.Timestamp]
	if hasTS {
		cal = ParseCalendar(rawTS)
	}

	for i, f := range fields {
		switch {
		case f.Kind == schema.Categorical:
			code, err := p.encode(f.Name, rec)
			if err != nil {
				return nil, err
			}
			vec[i] = float64(code)

		case f.Source == schema.Timestamp && hasTS:
			vec[i] = cal.Value(f.Name)

		default:
			x, err := parseNumber(f.Name, rec)
			if err != nil {
				var missing *MissingFieldError
				if f.Source != "" && errors.As(err, &missing) {
					return nil, &MissingFieldError{Field: f.Source}
				}
				return nil, err
			}
			vec[i] = x
		}
	}
	return vec, nil
}

// PrepareAll prepares a batch, stopping at the first failing row.
func (p *Preprocessor) PrepareAll(records []data.Record) ([]FeatureVector, error) {
	out := make([]FeatureVector, len(records))
	for i, rec := range records {
		vec, err := p.Prepare(rec)
		if err != nil {
			return nil, &RowError{Row: i, Err: err}
		}
		out[i] = vec
	}
	return out, nil
}

func (p *Preprocessor) encode(field string, rec data.Record) (int, error) {
	v, ok := rec.Get(field)
	if !ok {
		return 0, &MissingFieldError{Field: field}
	}
	enc := p.schema.Encoding(field)
	if enc == nil {
		return 0, &UnknownCategoryError{Field: field, Value: v}
	}
	code, ok := enc.Code(v)
	if !ok {
		return 0, &UnknownCategoryError{Field: field, Value: v, Known: enc.Classes}
	}
	return code, nil
}

func parseNumber(field string, rec data.Record) (float64, error) {
	v, ok := rec.Get(field)
	if !ok {
		return 0, &MissingFieldError{Field: field}
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &InvalidValueError{Field: field, Value: v, Err: err}
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, &InvalidValueError{Field: field, Value: v, Err: errNotFinite}
	}
	return x, nil
}
