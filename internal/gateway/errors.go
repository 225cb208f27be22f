package gateway

import (
	"errors"
	"fmt"

	"github.com/m3rciful/exchangebot/core/telegram/netutil"
)

// ErrGateway is matched by every error returned from Client calls.
var ErrGateway = errors.New("gateway: request failed")

// TransportError reports that the request never produced an HTTP response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway: %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrGateway, e.Err} }

// Kind classifies the underlying network failure.
func (e *TransportError) Kind() string {
	if class := netutil.Classify(e.Err); class != netutil.ClassNone {
		return "transport_" + class
	}
	return "transport"
}

// StatusError reports any response other than 200 OK.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway: %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("gateway: %s: status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrGateway }

// Kind returns "status".
func (e *StatusError) Kind() string { return "status" }

// DecodeError reports a 200 response whose body is malformed or misses a
// required field.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("gateway: %s: decode: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrGateway, e.Err} }

// Kind returns "decode".
func (e *DecodeError) Kind() string { return "decode" }

func missing(field string) error {
	return fmt.Errorf("missing field %q", field)
}
