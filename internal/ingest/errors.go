package ingest

import "fmt"

// FailureKind classifies an ingestion failure so callers can decide between
// retry, regenerate-and-retry, and permanent rejection.
type FailureKind int

const (
	// KindTransient covers network failures and timeouts on the download or
	// upload path. Worth a bounded retry or a skip-and-report.
	KindTransient FailureKind = iota

	// KindValidation covers payloads that are not decodable images or are
	// below the minimum size. Permanently rejected, never retried.
	KindValidation

	// KindAuthorization covers rejected object-store or source credentials.
	// Surfaced distinctly so callers can mint a fresh grant and retry once.
	KindAuthorization
)

func (k FailureKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	default:
		return "unknown"
	}
}

// Error is a typed ingestion failure carrying the source URL and kind.
type Error struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingest %s (%s): %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transientErr(url string, err error) *Error {
	return &Error{Kind: KindTransient, URL: url, Err: err}
}

func validationErr(url string, err error) *Error {
	return &Error{Kind: KindValidation, URL: url, Err: err}
}

func authErr(url string, err error) *Error {
	return &Error{Kind: KindAuthorization, URL: url, Err: err}
}
