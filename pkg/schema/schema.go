package schema

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind tags a feature as numeric or categorical.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// Raw column names.
const (
	Timestamp     = "Timestamp"
	MachineID     = "Machine_ID"
	OperationMode = "Operation_Mode"
	Target        = "Efficiency_Status"

	Year  = "Year"
	Month = "Month"
	Day   = "Day"
	Hour  = "Hour"
)

// Field is one position of the feature vector. Source names the raw column a
// derived field is computed from (only the calendar fields have one).
type Field struct {
	Name   string `json:"name"`
	Kind   Kind   `json:"kind"`
	Source string `json:"source,omitempty"`
}

var defaultFields = []Field{
	{Name: OperationMode, Kind: Categorical},
	{Name: "Temperature_C", Kind: Numeric},
	{Name: "Vibration_Hz", Kind: Numeric},
	{Name: "Power_Consumption_kW", Kind: Numeric},
	{Name: "Network_Latency_ms", Kind: Numeric},
	{Name: "Packet_Loss_%", Kind: Numeric},
	{Name: "Quality_Control_Defect_Rate_%", Kind: Numeric},
	{Name: "Production_Speed_units_per_hr", Kind: Numeric},
	{Name: "Predictive_Maintenance_Score", Kind: Numeric},
	{Name: "Error_Rate_%", Kind: Numeric},
	{Name: Year, Kind: Numeric, Source: Timestamp},
	{Name: Month, Kind: Numeric, Source: Timestamp},
	{Name: Day, Kind: Numeric, Source: Timestamp},
	{Name: Hour, Kind: Numeric, Source: Timestamp},
}

// DefaultFields returns a copy of the feature order the models are trained on.
func DefaultFields() []Field {
	out := make([]Field, len(defaultFields))
	copy(out, defaultFields)
	return out
}

// Schema describes the structure of a feature vector together with the
// encoding tables learned at training time. Once persisted it is read-only.
type Schema struct {
	Version   string               `json:"version"`
	CreatedAt time.Time            `json:"created_at"`
	Fields    []Field              `json:"fields"`
	Encodings map[string]*Encoding `json:"encodings"`
	Target    *Encoding            `json:"target"`
}

// New returns a schema with a fresh version and empty encoding tables for
// every categorical field and for the target.
func New(fields []Field) *Schema {
	s := &Schema{
		Version:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Fields:    fields,
		Encodings: make(map[string]*Encoding),
		Target:    NewEncoding(Target),
	}
	for _, f := range fields {
		if f.Kind == Categorical {
			s.Encodings[f.Name] = NewEncoding(f.Name)
		}
	}
	return s
}

func (s *Schema) Len() int { return len(s.Fields) }

// Names returns the feature names in vector order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// Index returns the vector position of a feature, or -1.
func (s *Schema) Index(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Field looks a feature up by name.
func (s *Schema) Field(name string) (Field, bool) {
	if i := s.Index(name); i >= 0 {
		return s.Fields[i], true
	}
	return Field{}, false
}

func (s *Schema) Encoding(field string) *Encoding { return s.Encodings[field] }

// LabelMap maps target class indices back to their status names.
func (s *Schema) LabelMap() LabelMap {
	m := make(LabelMap)
	if s.Target == nil {
		return m
	}
	for code := 0; code < s.Target.Len(); code++ {
		if label, ok := s.Target.Label(code); ok {
			m[code] = label
		}
	}
	return m
}

var (
	ErrNoFields         = errors.New("schema has no fields")
	ErrDuplicateField   = errors.New("duplicate field")
	ErrMissingEncoding  = errors.New("categorical field has no encoding")
	ErrEmptyEncoding    = errors.New("encoding has no categories")
	ErrMissingTarget    = errors.New("schema has no target encoding")
	ErrMissingVersion   = errors.New("schema has no version")
	ErrUnknownFieldKind = errors.New("unknown field kind")
)

// Validate checks that the schema can be used for inference: a version, unique
// field names and a non-empty encoding for every categorical field and the target.
func (s *Schema) Validate() error {
	if s.Version == "" {
		return ErrMissingVersion
	}
	if len(s.Fields) == 0 {
		return ErrNoFields
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateField, f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Kind {
		case Numeric:
		case Categorical:
			enc := s.Encodings[f.Name]
			if enc == nil {
				return fmt.Errorf("%w: %s", ErrMissingEncoding, f.Name)
			}
			if enc.Len() == 0 {
				return fmt.Errorf("%w: %s", ErrEmptyEncoding, f.Name)
			}
		default:
			return fmt.Errorf("%w: %q on %s", ErrUnknownFieldKind, f.Kind, f.Name)
		}
	}
	if s.Target == nil {
		return ErrMissingTarget
	}
	if s.Target.Len() == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyEncoding, s.Target.Field)
	}
	return nil
}
