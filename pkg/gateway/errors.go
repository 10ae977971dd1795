package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a failed completion.
type Kind int

const (
	KindUnexpected Kind = iota
	KindMisconfigured
	KindUpstream
	KindTransport
	KindInvalidRequest
)

func (k Kind) String() string {
	switch k {
	case KindMisconfigured:
		return "misconfigured"
	case KindUpstream:
		return "upstream"
	case KindTransport:
		return "transport"
	case KindInvalidRequest:
		return "invalid_request"
	default:
		return "unexpected"
	}
}

// Error is returned by Complete for every failure.
type Error struct {
	Kind Kind
	// Status and Body are the provider's response for KindUpstream.
	Status int
	Body   []byte
	// Reason is a short human readable cause.
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Kind == KindUpstream {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Details is what callers surface next to the error message. For upstream
// failures it is the provider body, as JSON when the body is JSON and as a
// string otherwise.
func (e *Error) Details() any {
	switch e.Kind {
	case KindUpstream:
		if len(e.Body) > 0 && json.Valid(e.Body) {
			return json.RawMessage(e.Body)
		}
		if len(e.Body) == 0 {
			return map[string]any{}
		}
		return string(e.Body)
	case KindTransport, KindUnexpected:
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Reason
	case KindInvalidRequest:
		return e.Reason
	default:
		return nil
	}
}

// KindOf reports the Kind of err, or KindUnexpected when err is not an *Error.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindUnexpected
}
