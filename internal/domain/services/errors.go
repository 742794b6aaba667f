package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fatal pipeline failure
type ErrorKind string

// Error kinds
const (
	ResolutionFailure ErrorKind = "resolution failure"
	FetchFailure      ErrorKind = "fetch failure"
	DownloadFailure   ErrorKind = "download failure"
	ConfigFailure     ErrorKind = "config failure"
)

// Sentinel errors wrapped by PipelineError
var (
	ErrVersionNotFound    = errors.New("no qualifying version")
	ErrNoVariant          = errors.New("no matching variant")
	ErrBundleMissing      = errors.New("bundle not found after download")
	ErrMergeOutputMissing = errors.New("merged package not found after merge")
	ErrPatchOutputMissing = errors.New("patched output not found")
	ErrLedgerUnavailable  = errors.New("last build and release count both unavailable")
	ErrMalformedToggles   = errors.New("malformed prerelease toggles")
)

// PipelineError names the failed collaborator or resource
type PipelineError struct {
	Kind     ErrorKind
	Resource string
	Err      error
}

// NewPipelineError creates a PipelineError
func NewPipelineError(kind ErrorKind, resource string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Resource: resource, Err: err}
}

func (e *PipelineError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Resource, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first PipelineError in err's chain
func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
