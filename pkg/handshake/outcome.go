package handshake

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/evanxg852000/p2p-handshake/pkg/wire"
)

// ErrorKind classifies why an exchange failed.
type ErrorKind int

const (
	// KindNone means the exchange did not fail.
	KindNone ErrorKind = iota

	// KindTransport indicates a connection-level I/O failure, including
	// the peer closing the stream mid-message.
	KindTransport

	// KindTimeout indicates the deadline expired before both directions
	// of the exchange completed.
	KindTimeout

	// KindProtocol indicates the peer sent structurally invalid bytes or,
	// in strict mode, an unacceptable version.
	KindProtocol
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindTransport:
		return "TransportError"
	case KindTimeout:
		return "Timeout"
	case KindProtocol:
		return "ProtocolError"
	default:
		return fmt.Sprintf("ErrorKind(%d)", k)
	}
}

// Sentinel errors surfaced through Outcome.Err.
var (
	// ErrVersionMismatch indicates the peer's major version differs and
	// strict version checking was requested.
	ErrVersionMismatch = errors.New("incompatible protocol version")

	// ErrExchangeReused indicates Run was called on an exchange that
	// already reached a terminal state.
	ErrExchangeReused = errors.New("exchange already completed")
)

// Outcome is the terminal result of one handshake exchange. Exactly one
// outcome is produced per invocation; there is no retry inside the core.
type Outcome struct {
	// OK reports whether the exchange succeeded.
	OK bool

	// Peer is the decoded peer handshake. Set only on success.
	Peer *wire.HandshakeMessage

	// PeerFingerprint is the hex BLAKE2b-256 digest of the peer's raw
	// handshake bytes. Set only on success.
	PeerFingerprint string

	// VersionNote carries a compatibility warning when the peer's major
	// version differs from the local one. A mismatch alone does not turn
	// success into failure unless strict checking is requested.
	VersionNote string

	// Elapsed is the wall time the exchange took.
	Elapsed time.Duration

	// Kind, Detail and Err describe the failure. Kind is KindNone on
	// success.
	Kind   ErrorKind
	Detail string
	Err    error
}

func failure(kind ErrorKind, detail string, err error, start time.Time) *Outcome {
	return &Outcome{
		Kind:    kind,
		Detail:  detail,
		Err:     err,
		Elapsed: time.Since(start),
	}
}

// classify maps an error from the send or receive path to its kind.
// Deadline expiry wins over everything; a stream that ran out of bytes is
// a transport failure, not a malformed message.
func classify(err error) ErrorKind {
	var nerr net.Error
	switch {
	case errors.As(err, &nerr) && nerr.Timeout(),
		errors.Is(err, os.ErrDeadlineExceeded):
		return KindTimeout
	case errors.Is(err, wire.ErrTruncated):
		return KindTransport
	case errors.Is(err, wire.ErrVlqOverflow),
		errors.Is(err, wire.ErrNameTooLong),
		errors.Is(err, wire.ErrBlobTooLong),
		errors.Is(err, wire.ErrTooManyFeatures),
		errors.Is(err, wire.ErrInvalidUTF8),
		errors.Is(err, wire.ErrInvalidAddrFlag):
		return KindProtocol
	default:
		return KindTransport
	}
}
