package bus

import "fmt"

// ErrKind classifies bus failures so the poller can pick a policy
// without string matching.
type ErrKind int

const (
	// Busy means the arbiter mutex was not acquired within the timeout.
	Busy ErrKind = iota
	// IO is an underlying serial failure.
	IO
	// FramingTimeout means no complete response arrived within the
	// per-transaction window.
	FramingTimeout
	// CRCMismatch means the response checksum failed.
	CRCMismatch
	// UnexpectedResponse covers wrong slave, wrong function code or an
	// exception frame from the drive.
	UnexpectedResponse
)

func (k ErrKind) String() string {
	switch k {
	case Busy:
		return "busy"
	case IO:
		return "io"
	case FramingTimeout:
		return "framing_timeout"
	case CRCMismatch:
		return "crc_mismatch"
	case UnexpectedResponse:
		return "unexpected_response"
	}
	return "?"
}

// Error is the typed error returned by all bus operations.
type Error struct {
	Kind ErrKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bus %s: %v", e.Kind, e.Err)
	}
	return "bus " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func errOf(kind ErrKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the ErrKind from err, defaulting to IO for foreign
// errors.
func KindOf(err error) ErrKind {
	if be, ok := err.(*Error); ok {
		return be.Kind
	}
	return IO
}
