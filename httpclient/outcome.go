package httpclient

import (
	"fmt"
	"net/http"
)

// Status classifies the result of a fetch
type Status int

const (
	StatusSuccess Status = iota
	StatusHTTPError
	StatusTimeout
	StatusConnectionError
	StatusRedirectLimit
	StatusDecodeError
	StatusRequestError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusHTTPError:
		return "HTTP_ERROR"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusConnectionError:
		return "CONNECTION_ERROR"
	case StatusRedirectLimit:
		return "REDIRECT_LIMIT"
	case StatusDecodeError:
		return "DECODE_ERROR"
	case StatusRequestError:
		return "REQUEST_ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of a single Fetch call.
// Only the last attempt is reported when retries happen
type Outcome struct {
	// Underlying cause for non-success statuses, if any
	Err error

	// Response headers of the last attempt, if a response was received
	Headers http.Header

	// The requested URL
	URL string

	// Decoded document, only set on success
	Document string

	// Name of the encoding the document was decoded with
	Encoding string

	Status Status

	// HTTP status code of the last attempt, 0 if no response was received
	Code int

	// Number of attempts made, including the first one
	Attempts int
}

// OK reports whether the fetch yielded a usable document
func (o *Outcome) OK() bool {
	return o != nil && o.Status == StatusSuccess
}

// String returns a short human-readable description of the outcome
func (o *Outcome) String() string {
	switch o.Status {
	case StatusSuccess:
		return fmt.Sprintf("%s (%d)", o.Status, o.Code)
	case StatusHTTPError:
		return fmt.Sprintf("%s(%d)", o.Status, o.Code)
	default:
		if o.Err != nil {
			return fmt.Sprintf("%s: %s", o.Status, o.Err)
		}

		return o.Status.String()
	}
}
