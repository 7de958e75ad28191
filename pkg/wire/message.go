package wire

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Size bounds applied to untrusted peer input. Declared lengths beyond
// these are rejected before any allocation happens.
const (
	MaxAgentNameLen = 64 << 10
	MaxFeatureBlob  = 64 << 10
	MaxFeatureCount = 1024
)

var (
	ErrNameTooLong      = errors.New("agent name exceeds maximum length")
	ErrBlobTooLong      = errors.New("feature blob exceeds maximum length")
	ErrTooManyFeatures  = errors.New("feature count exceeds maximum")
	ErrInvalidUTF8      = errors.New("agent name is not valid utf-8")
	ErrInvalidAddrFlag  = errors.New("invalid declared address flag")
	ErrTrailingBytes    = errors.New("trailing bytes after message")
	ErrNotIPv4          = errors.New("declared address is not an IPv4 address")
	ErrMalformedVersion = errors.New("malformed version")
)

// Version is a protocol semantic version triple. Each component fits in
// one byte on the wire.
type Version struct {
	Major uint8
	Minor uint8
	Patch uint8
}

// String returns the version in "major.minor.patch" form.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compatible reports whether a peer running other can interoperate with a
// node running v. Major versions must match; peers of differing minor and
// patch versions are expected to interoperate.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}

// ParseVersion parses a version string in the form "major.minor.patch".
// Exactly three components are required, each in 0..255.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("%w: %q", ErrMalformedVersion, s)
	}
	var raw [3]uint8
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("%w: component %q", ErrMalformedVersion, part)
		}
		raw[i] = uint8(n)
	}
	return Version{Major: raw[0], Minor: raw[1], Patch: raw[2]}, nil
}

// PeerAddr is the IPv4 endpoint a node declares as its publicly reachable
// address. The handshake does not verify reachability.
type PeerAddr struct {
	IP   net.IP
	Port uint16
}

// String returns the address in "ip:port" form.
func (a PeerAddr) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

// ParsePeerAddr parses an "ip:port" pair into a PeerAddr. Only IPv4
// addresses are accepted since the wire format carries 4 address bytes.
func ParsePeerAddr(s string) (*PeerAddr, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return nil, fmt.Errorf("parse declared address %q: %w", s, err)
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotIPv4, host)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("parse declared address port %q: %w", portStr, err)
	}
	return &PeerAddr{IP: ip, Port: uint16(port)}, nil
}

// Feature is a tagged capability announcement carried in a handshake.
// Tags are opaque to the codec; unknown tags are preserved, never fatal,
// so future feature kinds need no codec change.
type Feature struct {
	Tag  uint8
	Data []byte
}

// HandshakeMessage is the payload each side sends exactly once when a
// session is established. It is not mutated after construction.
type HandshakeMessage struct {
	// Timestamp is the sender's clock in Unix milliseconds at send time.
	// Informational only; no ordering across endpoints is implied.
	Timestamp uint64

	// AgentName identifies the sending implementation, e.g. "ergo-node".
	AgentName string

	// Version is the sender's protocol version.
	Version Version

	// DeclaredAddr is the address the sender claims to be reachable at.
	// Nil is a valid, common case.
	DeclaredAddr *PeerAddr

	// Features lists the sender's capability announcements in order.
	Features []Feature
}
