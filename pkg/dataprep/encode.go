package dataprep

import (
	"effpred/pkg/data"
	"effpred/pkg/schema"
)

// LearnEncodings fills the schema's categorical and target tables from the
// training records, assigning codes in first-seen order. Records lacking a
// categorical value are reported as MissingFieldError.
func LearnEncodings(records []data.Record, s *schema.Schema) error {
	for i, rec := range records {
		for _, f := range s.Fields {
			if f.Kind != schema.Categorical {
				continue
			}
			v, ok := rec.Get(f.Name)
			if !ok {
				return &RowError{Row: i, Err: &MissingFieldError{Field: f.Name}}
			}
			s.Encoding(f.Name).Observe(v)
		}
		v, ok := rec.Get(schema.Target)
		if !ok {
			return &RowError{Row: i, Err: &MissingFieldError{Field: schema.Target}}
		}
		s.Target.Observe(v)
	}
	return nil
}

// EncodeTarget maps the record's target label through the frozen target table.
func EncodeTarget(rec data.Record, s *schema.Schema) (int, error) {
	v, ok := rec.Get(schema.Target)
	if !ok {
		return 0, &MissingFieldError{Field: schema.Target}
	}
	code, ok := s.Target.Code(v)
	if !ok {
		return 0, &UnknownCategoryError{Field: schema.Target, Value: v, Known: s.Target.Classes}
	}
	return code, nil
}

// EncodeTargets is the batched form of EncodeTarget.
func EncodeTargets(records []data.Record, s *schema.Schema) ([]int, error) {
	out := make([]int, len(records))
	for i, rec := range records {
		code, err := EncodeTarget(rec, s)
		if err != nil {
			return nil, &RowError{Row: i, Err: err}
		}
		out[i] = code
	}
	return out, nil
}
