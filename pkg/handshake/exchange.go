// Package handshake drives the two-sided handshake exchange: it sends the
// local handshake message and receives the peer's concurrently over one
// stream, then validates the result into a single Outcome.
package handshake

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/evanxg852000/p2p-handshake/pkg/crypto"
	"github.com/evanxg852000/p2p-handshake/pkg/wire"
)

// DefaultTimeout bounds an exchange when the caller supplies none. The
// reference node drops handshakes after 30 seconds, so anything slower is
// not worth waiting for.
const DefaultTimeout = 30 * time.Second

// Stream is the duplex byte stream an exchange runs over. net.Conn and
// both ends of net.Pipe satisfy it. The exchange owns the stream for the
// duration of one Run; closing it afterwards is the caller's job.
type Stream interface {
	io.Reader
	io.Writer
	SetDeadline(t time.Time) error
}

// Identity describes the local node as presented to the peer.
type Identity struct {
	AgentName    string
	Version      wire.Version
	DeclaredAddr *wire.PeerAddr
	Features     []wire.Feature
}

// Options tune a single exchange.
type Options struct {
	// Timeout bounds the whole exchange. Zero means DefaultTimeout.
	Timeout time.Duration

	// StrictVersion turns a major version mismatch into a failure
	// instead of a note on the success outcome.
	StrictVersion bool
}

// State identifies where an exchange is in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateExchanging
	StateValidating
	StateCompleted
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateExchanging:
		return "Exchanging"
	case StateValidating:
		return "Validating"
	case StateCompleted:
		return "Completed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Exchange performs one send-and-receive handshake over a stream. It is
// single-shot: once Run returns, the exchange is terminal and a fresh one
// must be created for any retry.
type Exchange struct {
	local Identity
	opts  Options

	mu    sync.Mutex
	state State
}

// New creates an exchange for the given local identity.
func New(local Identity, opts Options) *Exchange {
	return &Exchange{local: local, opts: opts}
}

// State returns the exchange's current lifecycle state.
func (e *Exchange) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Perform runs a single handshake exchange over stream. It is shorthand
// for New(local, opts).Run(stream).
func Perform(stream Stream, local Identity, opts Options) *Outcome {
	return New(local, opts).Run(stream)
}

// Run executes the exchange: the local message is written and the peer's
// message is read concurrently, then the result is validated.
//
// Sending and receiving must overlap. The peer follows the same rule we
// do — speak first, listen at the same time — so an implementation that
// finished receiving before it started sending would deadlock against
// itself on the other end.
//
// The whole exchange is bound to one deadline. On expiry both directions
// fail together; the stream is left open for the caller to close.
func (e *Exchange) Run(stream Stream) *Outcome {
	start := time.Now()
	if !e.transition(StateIdle, StateExchanging) {
		return failure(KindProtocol, "exchange is terminal, create a new one", ErrExchangeReused, start)
	}

	timeout := e.opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	local := &wire.HandshakeMessage{
		Timestamp:    uint64(time.Now().UnixMilli()),
		AgentName:    e.local.AgentName,
		Version:      e.local.Version,
		DeclaredAddr: e.local.DeclaredAddr,
		Features:     e.local.Features,
	}
	encoded, err := wire.Encode(local)
	if err != nil {
		e.setState(StateCompleted)
		return failure(KindProtocol, "encode local handshake", err, start)
	}

	if err := stream.SetDeadline(time.Now().Add(timeout)); err != nil {
		e.setState(StateCompleted)
		return failure(KindTransport, "set exchange deadline", err, start)
	}

	sendErr := make(chan error, 1)
	go func() {
		_, err := stream.Write(encoded)
		sendErr <- err
	}()

	type recvResult struct {
		msg *wire.HandshakeMessage
		raw []byte
		err error
	}
	recvCh := make(chan recvResult, 1)
	go func() {
		var raw bytes.Buffer
		msg, err := wire.Decode(io.TeeReader(stream, &raw))
		recvCh <- recvResult{msg: msg, raw: raw.Bytes(), err: err}
	}()

	werr := <-sendErr
	recv := <-recvCh

	e.setState(StateValidating)
	defer e.setState(StateCompleted)

	if recv.err != nil {
		return failure(classify(recv.err), "receive peer handshake", recv.err, start)
	}
	if werr != nil {
		return failure(classify(werr), "send local handshake", werr, start)
	}

	var note string
	if !e.local.Version.Compatible(recv.msg.Version) {
		note = fmt.Sprintf("peer major version %d differs from local %d (%s vs %s)",
			recv.msg.Version.Major, e.local.Version.Major, recv.msg.Version, e.local.Version)
		if e.opts.StrictVersion {
			return failure(KindProtocol, note, ErrVersionMismatch, start)
		}
	}

	// Leave the stream usable for whatever the caller does next.
	stream.SetDeadline(time.Time{})

	return &Outcome{
		OK:              true,
		Peer:            recv.msg,
		PeerFingerprint: crypto.Fingerprint(recv.raw),
		VersionNote:     note,
		Elapsed:         time.Since(start),
	}
}

func (e *Exchange) transition(from, to State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != from {
		return false
	}
	e.state = to
	return true
}

func (e *Exchange) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
