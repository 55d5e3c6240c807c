package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Encoding maps category labels to dense integer codes in the order the
// labels were first observed.
type Encoding struct {
	Field   string
	Classes []string
	index   map[string]int
}

func NewEncoding(field string) *Encoding {
	return &Encoding{Field: field, index: map[string]int{}}
}

// Observe returns the code of label, assigning the next free code on first
// sight. Only the training pipeline calls this.
func (e *Encoding) Observe(label string) int {
	if code, ok := e.index[label]; ok {
		return code
	}
	code := len(e.Classes)
	e.Classes = append(e.Classes, label)
	e.index[label] = code
	return code
}

// Code looks a label up without extending the table.
func (e *Encoding) Code(label string) (int, bool) {
	code, ok := e.index[label]
	return code, ok
}

func (e *Encoding) Label(code int) (string, bool) {
	if code < 0 || code >= len(e.Classes) {
		return "", false
	}
	return e.Classes[code], true
}

func (e *Encoding) Len() int { return len(e.Classes) }

// Mapping returns label -> code, e.g. for logging.
func (e *Encoding) Mapping() map[string]int {
	out := make(map[string]int, len(e.Classes))
	for code, label := range e.Classes {
		out[label] = code
	}
	return out
}

type encodingJSON struct {
	Field   string   `json:"field"`
	Classes []string `json:"classes"`
}

func (e *Encoding) MarshalJSON() ([]byte, error) {
	return json.Marshal(encodingJSON{Field: e.Field, Classes: e.Classes})
}

func (e *Encoding) UnmarshalJSON(b []byte) error {
	var raw encodingJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Field = raw.Field
	e.Classes = raw.Classes
	e.index = make(map[string]int, len(raw.Classes))
	for code, label := range raw.Classes {
		if _, dup := e.index[label]; dup {
			return fmt.Errorf("encoding %s: duplicate class %q", raw.Field, label)
		}
		e.index[label] = code
	}
	return nil
}

// LabelMap maps a class index to a human-readable status.
type LabelMap map[int]string

// Name never fails: an index outside the map degrades to "Unknown (n)".
func (m LabelMap) Name(idx int) string {
	if name, ok := m[idx]; ok {
		return name
	}
	return "Unknown (" + strconv.Itoa(idx) + ")"
}
