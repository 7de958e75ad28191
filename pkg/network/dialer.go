// Package network establishes the transport connections handshake
// exchanges run over.
package network

import (
	"fmt"
	"net"
	"strings"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

// Dial connects to target within timeout and returns the raw connection.
//
// Target is either a plain "host:port" pair or a multiaddr such as
// "/ip4/127.0.0.1/tcp/9030" or "/dns4/node.example.org/tcp/9030".
func Dial(target string, timeout time.Duration) (net.Conn, error) {
	netw, address := "tcp", target
	if strings.HasPrefix(target, "/") {
		maddr, err := ma.NewMultiaddr(target)
		if err != nil {
			return nil, fmt.Errorf("parse multiaddr %q: %w", target, err)
		}
		netw, address, err = manet.DialArgs(maddr)
		if err != nil {
			return nil, fmt.Errorf("unsupported multiaddr %q: %w", target, err)
		}
	}
	conn, err := net.DialTimeout(netw, address, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return conn, nil
}
