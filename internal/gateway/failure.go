package gateway

import (
	"errors"
)

// Kind classifies why an exchange failed.
type Kind int

const (
	// KindNetwork: no response was received.
	KindNetwork Kind = iota + 1
	// KindUnauthorized: the server answered 401. The session has already been
	// torn down when a caller sees this.
	KindUnauthorized
	// KindProtocol: the response could not be read as the JSON the contract
	// promises.
	KindProtocol
	// KindApplication: the server rejected the request with a JSON error body.
	KindApplication
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindProtocol:
		return "protocol"
	case KindApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Failure describes an exchange that was attempted and failed. Errors from
// building the request (an unparsable path or a body that cannot be encoded)
// happen before anything is sent and are returned as plain wrapped errors.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil && f.Kind == KindNetwork {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf returns the failure kind of err, or 0 when err is not a *Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}

func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// UserMessage renders err as the single line shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var f *Failure
	if !errors.As(err, &f) {
		return err.Error()
	}
	switch f.Kind {
	case KindUnauthorized:
		return "Your session has expired. Please log in again."
	case KindNetwork:
		return "Could not reach the server. Please try again."
	default:
		return f.Message
	}
}

// outcome is the metrics label for err.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if k := KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}
