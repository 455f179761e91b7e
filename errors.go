package rbzk

import "fmt"

// Kind classifies a ZKError for callers that want to branch on failure mode
// without string-matching messages.
type Kind int

const (
	// KindNetwork covers socket-level failures: refused, unreachable, reset,
	// broken pipe, DNS.
	KindNetwork Kind = iota
	// KindTimeout covers an exceeded per-operation receive deadline.
	KindTimeout
	// KindProtocol covers malformed frames, truncated payloads, unexpected
	// response codes, and exhausted chunk retries.
	KindProtocol
	// KindAuth covers CMD_ACK_UNAUTH from the device, or auth attempted
	// with no password configured.
	KindAuth
	// KindDevice covers CMD_ACK_ERROR to an otherwise well-formed request.
	KindDevice
	// KindExists covers a device-reported conflict (duplicate identifier).
	KindExists
	// KindState covers an operation attempted while not connected.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindAuth:
		return "auth"
	case KindDevice:
		return "device"
	case KindExists:
		return "exists"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// ZKError is the base error type returned by every rbzk operation that can
// fail. Callers should use errors.As to recover it and inspect Kind.
type ZKError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *ZKError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rbzk: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("rbzk: %s: %s", e.Op, e.Kind)
}

func (e *ZKError) Unwrap() error {
	return e.Err
}

func newErr(kind Kind, op string, err error) *ZKError {
	return &ZKError{Kind: kind, Op: op, Err: err}
}

// Convenience constructors mirroring the error-hierarchy names from the
// external interface contract (§6): ZKNetworkError, ZKErrorConnection,
// ZKErrorResponse, ZKErrorUnauthenticated, ZKErrorExists.

func errNetwork(op string, err error) error  { return newErr(KindNetwork, op, err) }
func errTimeout(op string, err error) error  { return newErr(KindTimeout, op, err) }
func errProtocol(op string, msg string) error {
	return newErr(KindProtocol, op, fmt.Errorf("%s", msg))
}
func errAuth(op string, msg string) error {
	return newErr(KindAuth, op, fmt.Errorf("%s", msg))
}
func errDevice(op string, code int) error {
	return newErr(KindDevice, op, fmt.Errorf("device returned error ack (code %d)", code))
}
func errExists(op string, msg string) error {
	return newErr(KindExists, op, fmt.Errorf("%s", msg))
}
func errState(op string) error {
	return newErr(KindState, op, fmt.Errorf("not connected"))
}

// IsKind reports whether err is a *ZKError of the given kind.
func IsKind(err error, kind Kind) bool {
	var zerr *ZKError
	if ze, ok := err.(*ZKError); ok {
		zerr = ze
	} else {
		return false
	}
	return zerr.Kind == kind
}
