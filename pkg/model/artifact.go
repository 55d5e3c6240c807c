package model

import (
	"fmt"
	"time"
)

// Artifact is a persisted classifier. Blob is opaque to everything except the
// decoder registered for Kind.
type Artifact struct {
	Kind          string    `json:"kind"`
	SchemaVersion string    `json:"schema_version"`
	Features      int       `json:"features"`
	CreatedAt     time.Time `json:"created_at"`
	Blob          []byte    `json:"blob"`
}

// Encode serializes a fitted classifier, tagging it with the schema version
// its training vectors were built with.
func Encode(c Classifier, schemaVersion string) (*Artifact, error) {
	blob, err := c.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode %s model: %w", c.Kind(), err)
	}
	return &Artifact{
		Kind:          c.Kind(),
		SchemaVersion: schemaVersion,
		Features:      c.NumFeatures(),
		CreatedAt:     time.Now().UTC(),
		Blob:          blob,
	}, nil
}

// Decode restores the classifier held by a.
func Decode(a *Artifact) (Classifier, error) {
	dec, ok := Decoders[a.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown classifier kind %q", a.Kind)
	}
	c, err := dec(a.Blob)
	if err != nil {
		return nil, err
	}
	if c.NumFeatures() != a.Features {
		return nil, fmt.Errorf("%w: artifact says %d, model has %d", ErrFeatureCount, a.Features, c.NumFeatures())
	}
	return c, nil
}
