package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/markdave123-py/StudyCoach/internal/core"
)

// Kind is the tagged reason a generation call failed.
type Kind string

const (
	KindInvalidArgument   Kind = "invalid_argument"
	KindContentTooLarge   Kind = "content_too_large"
	KindRateLimited       Kind = "rate_limited"
	KindPaymentRequired   Kind = "payment_required"
	KindBadRequest        Kind = "bad_request"
	KindUnauthorized      Kind = "unauthorized"
	KindProviderError     Kind = "provider_error"
	KindMalformedResponse Kind = "malformed_response"
	KindTransport         Kind = "transport_error"
)

// GenerationError is returned by every orchestrator call that does not yield
// a valid artifact.
type GenerationError struct {
	Kind       Kind
	Mode       Mode
	StatusCode int
	Body       string
	Err        error
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("%s generation failed (%s)", e.Mode, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GenerationError) Unwrap() error { return e.Err }

// KindOf returns the failure reason carried by err, or "" if err is not a
// generation failure.
func KindOf(err error) Kind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// IsKind reports whether err is a generation failure of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

func newError(mode Mode, kind Kind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Mode: mode, Err: err}
}

// classifyStatus maps provider HTTP statuses onto failure kinds.
func classifyStatus(code int) Kind {
	switch code {
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusPaymentRequired:
		return KindPaymentRequired
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	default:
		return KindProviderError
	}
}

// classify converts a backend error into a GenerationError. Status codes are
// checked before anything else.
func classify(mode Mode, err error) *GenerationError {
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		return &GenerationError{
			Kind:       classifyStatus(pe.StatusCode),
			Mode:       mode,
			StatusCode: pe.StatusCode,
			Body:       pe.Body,
			Err:        err,
		}
	}
	if errors.Is(err, core.ErrMalformedReply) {
		return newError(mode, KindMalformedResponse, err)
	}
	return newError(mode, KindTransport, err)
}
