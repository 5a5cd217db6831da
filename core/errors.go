package core

import "errors"

// ErrorKind names a category of failure rather than a concrete type.
// Handlers switch on Kind to decide on retry, penalty and transport-status
// mapping.
type ErrorKind int

const (
	// KindProtocolViolation covers missing src/dst, destination mismatch,
	// bad id length, or an unrecognized response kind. Fatal per-call;
	// triggers a risk penalty against src.
	KindProtocolViolation ErrorKind = iota
	// KindLivenessFailure is a failed Ping to src inside a handler
	// preamble. The request is aborted; risk penalty applies.
	KindLivenessFailure
	// KindNotFound is the terminal result of a lookup that exhausts every
	// candidate without locating the target.
	KindNotFound
	// KindNoPeers means a lookup could not even seed: the routing table
	// was empty.
	KindNoPeers
	// KindTransportError is a TLS handshake or socket failure, retryable
	// at the driver level within the same round.
	KindTransportError
	// KindValidationError is a block failing its PoW check or a marco
	// failing hash/signature verification. The item is dropped and the
	// gossip source takes a persistent penalty.
	KindValidationError
	// KindStaleBlock means a block refers to an unknown prev-hash; it
	// triggers a GetBlock backfill rather than propagating as an error.
	KindStaleBlock
)

func (k ErrorKind) String() string {
	switch k {
	case KindProtocolViolation:
		return "ProtocolViolation"
	case KindLivenessFailure:
		return "LivenessFailure"
	case KindNotFound:
		return "NotFound"
	case KindNoPeers:
		return "NoPeers"
	case KindTransportError:
		return "TransportError"
	case KindValidationError:
		return "ValidationError"
	case KindStaleBlock:
		return "StaleBlock"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type carrying an ErrorKind plus a message.
// Every core operation that can fail in a spec-named way returns one of
// these so callers can type-assert via errors.As and branch on Kind.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func newValidationError(message string) *Error {
	return newError(KindValidationError, message)
}

func newProtocolViolation(message string) *Error {
	return newError(KindProtocolViolation, message)
}

func newLivenessFailure(message string) *Error {
	return newError(KindLivenessFailure, message)
}

func newNotFound(message string) *Error {
	return newError(KindNotFound, message)
}

func newNoPeers(message string) *Error {
	return newError(KindNoPeers, message)
}

func newTransportError(message string) *Error {
	return newError(KindTransportError, message)
}

func newStaleBlock(message string) *Error {
	return newError(KindStaleBlock, message)
}

// KindOf extracts the ErrorKind from err if it is (or wraps) a *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
