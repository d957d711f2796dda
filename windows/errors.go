package windows

import (
	"fmt"

	"golang.org/x/xerrors"
)

// FetchError is returned when a source document could not be retrieved.
type FetchError struct {
	Document string
	URL      string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch the %s document from %s: %s", e.Document, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means an expected structure is missing from a document.
// It usually indicates the upstream page layout changed.
type ParseError struct {
	Document string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unable to parse the %s document: %s", e.Document, e.Reason)
}

// UnknownVocabularyError is returned for a servicing channel label outside the known set.
type UnknownVocabularyError struct {
	Label string
}

func (e *UnknownVocabularyError) Error() string {
	return fmt.Sprintf("unknown servicing channel: %q", e.Label)
}

// MissingCorrelationError is returned when a feature update has no lifecycle record for a tier.
type MissingCorrelationError struct {
	ReleaseName string
	Tier        Tier
}

func (e *MissingCorrelationError) Error() string {
	return fmt.Sprintf("no %s lifecycle info found for release %s", e.Tier, e.ReleaseName)
}

// NotFoundError is returned by FindRelease.
type NotFoundError struct {
	ReleaseName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("release '%s' not found", e.ReleaseName)
}

// IsNotFound reports whether err (or anything it wraps) is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return xerrors.As(err, &nf)
}
