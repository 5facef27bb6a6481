package aptcore

import (
	"errors"
	"fmt"
)

// Source names used in user-visible messages.
const (
	SourceMitre   = "MITRE"
	SourceTracker = "APT Tracker"
)

var (
	// ErrSourceUnavailable is returned when a source cannot be downloaded or read.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMalformedSource is returned when a source does not have the expected schema.
	ErrMalformedSource = errors.New("malformed source")
	// ErrGroupNotFound is returned when an alias does not resolve to any group.
	ErrGroupNotFound = errors.New("group not found")
	// ErrNoMatches marks an empty search result. It is a terminal success state.
	ErrNoMatches = errors.New("no matches")
)

// SourceError ties a failure to the source and the input that caused it.
type SourceError struct {
	Source string
	Input  string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("[%s]: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("[%s]: %s: %v", e.Source, e.Input, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func sourceErr(source, input string, err error) error {
	return &SourceError{Source: source, Input: input, Err: err}
}
