package skylight

import "errors"

// Sentinel errors for the Device Protocol Engine.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, skylight.ErrTransport) {
//	    // Device unreachable, timed out, or returned garbage
//	}
//
// Transport sub-causes (ErrUnreachable, ErrTimeout, ErrMalformedResponse,
// ErrHTTPStatus) all match ErrTransport, so callers that only care about
// "the network call failed" need a single check.
var (
	// ErrValidation indicates bad caller input (range, mutual exclusion,
	// unknown preset code). Validation failures never reach the device.
	ErrValidation = errors.New("skylight: validation failed")

	// ErrCodec indicates malformed schedule wire data, a mismatched
	// variant, or an entry-count overflow.
	ErrCodec = errors.New("skylight: codec failure")

	// ErrDeviceRejected indicates the device responded but signalled
	// failure or returned unexpected content.
	ErrDeviceRejected = errors.New("skylight: device rejected command")

	// ErrTransport is the parent of all network-level failures.
	// The device may or may not have received the command.
	ErrTransport = errors.New("skylight: transport failure")

	// ErrUnreachable indicates the device refused the connection or
	// could not be reached at all.
	ErrUnreachable = wrapSentinel(ErrTransport, "device unreachable")

	// ErrTimeout indicates the call exceeded its bounded timeout.
	ErrTimeout = wrapSentinel(ErrTransport, "request timed out")

	// ErrMalformedResponse indicates the device produced an HTTP response
	// that could not be read or parsed.
	ErrMalformedResponse = wrapSentinel(ErrTransport, "malformed response")

	// ErrHTTPStatus indicates the device answered with a non-success
	// HTTP status code.
	ErrHTTPStatus = wrapSentinel(ErrTransport, "http error status")

	// ErrSessionClosed indicates an operation was submitted to a session
	// that has been torn down.
	ErrSessionClosed = errors.New("skylight: session closed")

	// ErrUnknownLamp indicates a registry lookup for an id that has no
	// configured session.
	ErrUnknownLamp = errors.New("skylight: unknown lamp")
)

// wrapSentinel builds a child sentinel that matches its parent via errors.Is.
func wrapSentinel(parent error, msg string) error {
	return &sentinelError{parent: parent, msg: msg}
}

type sentinelError struct {
	parent error
	msg    string
}

func (e *sentinelError) Error() string {
	return e.parent.Error() + ": " + e.msg
}

func (e *sentinelError) Unwrap() error {
	return e.parent
}
