package clv

import "fmt"

// MissingColumnError reports a required input column that is absent.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column %q", e.Column)
}

// EmptyDatasetError reports a stage that received no rows to work on.
type EmptyDatasetError struct {
	Stage string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("%s: empty dataset", e.Stage)
}

// PreconditionError reports data that violates a stage's documented precondition.
type PreconditionError struct {
	Stage  string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Stage, e.Reason)
}

// ModelFitError reports an optimizer that did not converge to usable parameters.
type ModelFitError struct {
	Model  string
	Status string
	Err    error
}

func (e *ModelFitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fitting %s model: %s: %v", e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("fitting %s model: %s", e.Model, e.Status)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// InsufficientDataError reports too few distinct scores for the requested segmentation.
type InsufficientDataError struct {
	Distinct  int
	Requested int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("cannot build %d segments from %d distinct values", e.Requested, e.Distinct)
}
