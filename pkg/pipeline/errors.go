package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch is returned when artifacts produced under different
	// schema versions are combined.
	ErrSchemaMismatch = errors.New("artifact schema version mismatch")
	ErrNoUsableRows   = errors.New("every row has missing values")
	ErrBundleShape    = errors.New("schema, scaler and model disagree on feature count")
)

// PipelineStateError reports a step invoked in the wrong stage.
type PipelineStateError struct {
	Op       string
	Current  Stage
	Required Stage
}

func (e *PipelineStateError) Error() string {
	return fmt.Sprintf("%s: pipeline is %s, requires %s", e.Op, e.Current, e.Required)
}

// DataLoadError reports a raw data source that is missing or unreadable.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// StageError wraps the failure of one pipeline step.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }
