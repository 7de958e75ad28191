// Package main provides the CLI that performs one handshake against a
// remote node and reports the result.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/evanxg852000/p2p-handshake/pkg/handshake"
	"github.com/evanxg852000/p2p-handshake/pkg/network"
	"github.com/evanxg852000/p2p-handshake/pkg/wire"
)

const (
	defaultAgentName = "evan"
	defaultVersion   = "3.3.6"
)

var (
	target       = flag.String("target", "", "Address of the target node (host:port or multiaddr, required)")
	agentName    = flag.String("name", defaultAgentName, "Agent name announced to the peer")
	version      = flag.String("version", defaultVersion, "Version announced to the peer (major.minor.patch)")
	declaredAddr = flag.String("declared-addr", "", "Public ip:port advertised to the peer (optional)")
	features     = flag.String("features", "", "Comma-separated feature entries as tag:hexblob (optional)")
	timeout      = flag.Duration("timeout", handshake.DefaultTimeout, "Deadline for the whole exchange")
	strict       = flag.Bool("strict", false, "Fail on a major version mismatch")
)

func main() {
	flag.Parse()

	identity, err := buildIdentity()
	if err != nil {
		log.Printf("Error: %v", err)
		flag.Usage()
		os.Exit(2)
	}

	log.Printf("🔌 Connecting to %s...", *target)
	conn, err := network.Dial(*target, *timeout)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("✓ Connected to %s", conn.RemoteAddr())

	outcome := handshake.Perform(conn, identity, handshake.Options{
		Timeout:       *timeout,
		StrictVersion: *strict,
	})
	if !outcome.OK {
		log.Printf("❌ Handshake failed (%s): %s", outcome.Kind, outcome.Detail)
		if outcome.Err != nil {
			log.Printf("   cause: %v", outcome.Err)
		}
		os.Exit(1)
	}

	log.Printf("✅ Handshake complete in %v", outcome.Elapsed.Round(time.Millisecond))
	log.Printf("   Peer agent:   %s", outcome.Peer.AgentName)
	log.Printf("   Peer version: %s", outcome.Peer.Version)
	if outcome.Peer.DeclaredAddr != nil {
		log.Printf("   Declared addr: %s", outcome.Peer.DeclaredAddr)
	}
	for _, f := range outcome.Peer.Features {
		log.Printf("   Feature 0x%02x: %d bytes", f.Tag, len(f.Data))
	}
	log.Printf("   Fingerprint:  %s", outcome.PeerFingerprint)
	if outcome.VersionNote != "" {
		log.Printf("⚠️  %s", outcome.VersionNote)
	}
}

func buildIdentity() (handshake.Identity, error) {
	if *target == "" {
		return handshake.Identity{}, fmt.Errorf("-target flag is required")
	}

	ver, err := wire.ParseVersion(*version)
	if err != nil {
		return handshake.Identity{}, err
	}

	var addr *wire.PeerAddr
	if *declaredAddr != "" {
		addr, err = wire.ParsePeerAddr(*declaredAddr)
		if err != nil {
			return handshake.Identity{}, err
		}
	}

	feats, err := parseFeatures(*features)
	if err != nil {
		return handshake.Identity{}, err
	}

	return handshake.Identity{
		AgentName:    *agentName,
		Version:      ver,
		DeclaredAddr: addr,
		Features:     feats,
	}, nil
}

func parseFeatures(s string) ([]wire.Feature, error) {
	if s == "" {
		return nil, nil
	}
	var feats []wire.Feature
	for _, entry := range strings.Split(s, ",") {
		tagStr, blobStr, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("malformed feature entry %q, want tag:hexblob", entry)
		}
		tag, err := strconv.ParseUint(tagStr, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("feature tag %q: %w", tagStr, err)
		}
		data, err := hex.DecodeString(blobStr)
		if err != nil {
			return nil, fmt.Errorf("feature blob %q: %w", blobStr, err)
		}
		feats = append(feats, wire.Feature{Tag: uint8(tag), Data: data})
	}
	return feats, nil
}
