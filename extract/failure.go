package extract

import (
	"errors"
	"fmt"

	"github.com/sig-0/fxquotes/httpclient"
	"github.com/sig-0/fxquotes/storage/types"
)

var (
	// ErrNoFetch is matched by failures to retrieve the source document
	ErrNoFetch = errors.New("no fetch possible")

	// ErrNoQuoteFound is matched by failures to locate a quote in the document
	ErrNoQuoteFound = errors.New("no quote found")

	// ErrValidationRejected is matched when candidates were found, but none
	// passed validation. It also matches ErrNoQuoteFound
	ErrValidationRejected = fmt.Errorf("%w: validation rejected all candidates", ErrNoQuoteFound)

	// ErrPartialQuote is matched when only one side of a two-sided quote
	// could be recovered
	ErrPartialQuote = errors.New("partial quote")
)

// Kind is the category of a business failure
type Kind int

const (
	KindNoFetch Kind = iota
	KindNoQuoteFound
	KindValidationRejected
	KindPartialQuote
)

func (k Kind) String() string {
	switch k {
	case KindNoFetch:
		return "NO_FETCH"
	case KindNoQuoteFound:
		return "NO_QUOTE_FOUND"
	case KindValidationRejected:
		return "VALIDATION_REJECTED"
	case KindPartialQuote:
		return "PARTIAL_QUOTE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNoFetch:
		return ErrNoFetch
	case KindValidationRejected:
		return ErrValidationRejected
	case KindPartialQuote:
		return ErrPartialQuote
	default:
		return ErrNoQuoteFound
	}
}

// Failure is an expected, domain-level failure to produce a quote.
// It is never retried by the extraction core
type Failure struct {
	// Underlying cause, if any
	Err error

	Source types.Source

	// Human-readable reason
	Reason string

	Kind Kind

	// Transport status of the fetch, for KindNoFetch
	Status httpclient.Status

	// HTTP status code of the fetch, if a response was received
	Code int
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Source, f.Kind, f.Reason)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is / errors.As
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind.sentinel()}
	}

	return []error{f.Kind.sentinel(), f.Err}
}

// FetchFailure creates a KindNoFetch failure out of a failed fetch outcome
func FetchFailure(source types.Source, out *httpclient.Outcome) *Failure {
	return &Failure{
		Kind:   KindNoFetch,
		Source: source,
		Reason: fmt.Sprintf("unable to fetch %s: %s", out.URL, out),
		Status: out.Status,
		Code:   out.Code,
		Err:    out.Err,
	}
}
