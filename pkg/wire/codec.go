package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"unicode/utf8"
)

// Encode serializes m into its wire form.
func Encode(m *HandshakeMessage) ([]byte, error) {
	if len(m.AgentName) > MaxAgentNameLen {
		return nil, ErrNameTooLong
	}
	if len(m.Features) > MaxFeatureCount {
		return nil, ErrTooManyFeatures
	}

	buf := AppendUvlq(nil, m.Timestamp)
	buf = AppendUvlq(buf, uint64(len(m.AgentName)))
	buf = append(buf, m.AgentName...)
	buf = append(buf, m.Version.Major, m.Version.Minor, m.Version.Patch)

	if m.DeclaredAddr == nil {
		buf = append(buf, 0)
	} else {
		ip4 := m.DeclaredAddr.IP.To4()
		if ip4 == nil {
			return nil, ErrNotIPv4
		}
		buf = append(buf, 1)
		buf = append(buf, ip4...)
		buf = binary.BigEndian.AppendUint16(buf, m.DeclaredAddr.Port)
	}

	buf = AppendUvlq(buf, uint64(len(m.Features)))
	for _, f := range m.Features {
		if len(f.Data) > MaxFeatureBlob {
			return nil, ErrBlobTooLong
		}
		buf = append(buf, f.Tag)
		buf = AppendUvlq(buf, uint64(len(f.Data)))
		buf = append(buf, f.Data...)
	}

	return buf, nil
}

// Decode reads one handshake message from r.
//
// It consumes exactly the bytes the message's length prefixes declare and
// never reads ahead, so the stream is left positioned at the first
// post-handshake byte. Declared lengths are checked against the package
// bounds before allocating. An input that ends mid-field fails with
// ErrTruncated; other read errors pass through unchanged.
func Decode(r io.Reader) (*HandshakeMessage, error) {
	br := &byteReader{r: r}

	timestamp, err := ReadUvlq(br)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	nameLen, err := ReadUvlq(br)
	if err != nil {
		return nil, fmt.Errorf("agent name length: %w", err)
	}
	if nameLen > MaxAgentNameLen {
		return nil, fmt.Errorf("%w: declared %d", ErrNameTooLong, nameLen)
	}
	name := make([]byte, nameLen)
	if err := readFull(r, name); err != nil {
		return nil, fmt.Errorf("agent name: %w", err)
	}
	if !utf8.Valid(name) {
		return nil, ErrInvalidUTF8
	}

	var rawVersion [3]byte
	if err := readFull(r, rawVersion[:]); err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}

	flag, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("declared address flag: %w", mapEOF(err))
	}
	var declared *PeerAddr
	switch flag {
	case 0:
	case 1:
		var raw [6]byte
		if err := readFull(r, raw[:]); err != nil {
			return nil, fmt.Errorf("declared address: %w", err)
		}
		declared = &PeerAddr{
			IP:   net.IPv4(raw[0], raw[1], raw[2], raw[3]),
			Port: binary.BigEndian.Uint16(raw[4:6]),
		}
	default:
		return nil, fmt.Errorf("%w: %#x", ErrInvalidAddrFlag, flag)
	}

	count, err := ReadUvlq(br)
	if err != nil {
		return nil, fmt.Errorf("feature count: %w", err)
	}
	if count > MaxFeatureCount {
		return nil, fmt.Errorf("%w: declared %d", ErrTooManyFeatures, count)
	}
	var features []Feature
	for i := uint64(0); i < count; i++ {
		tag, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("feature %d tag: %w", i, mapEOF(err))
		}
		blobLen, err := ReadUvlq(br)
		if err != nil {
			return nil, fmt.Errorf("feature %d length: %w", i, err)
		}
		if blobLen > MaxFeatureBlob {
			return nil, fmt.Errorf("%w: feature %d declared %d", ErrBlobTooLong, i, blobLen)
		}
		data := make([]byte, blobLen)
		if err := readFull(r, data); err != nil {
			return nil, fmt.Errorf("feature %d blob: %w", i, err)
		}
		features = append(features, Feature{Tag: tag, Data: data})
	}

	return &HandshakeMessage{
		Timestamp:    timestamp,
		AgentName:    string(name),
		Version:      Version{Major: rawVersion[0], Minor: rawVersion[1], Patch: rawVersion[2]},
		DeclaredAddr: declared,
		Features:     features,
	}, nil
}

// DecodeBytes decodes a complete message from data and rejects trailing
// unconsumed bytes.
func DecodeBytes(data []byte) (*HandshakeMessage, error) {
	r := bytes.NewReader(data)
	m, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingBytes, r.Len())
	}
	return m, nil
}

// byteReader adapts an io.Reader for single-byte reads without buffering,
// so decoding never consumes bytes past the message end.
type byteReader struct {
	r io.Reader
	b [1]byte
}

func (br *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(br.r, br.b[:]); err != nil {
		return 0, err
	}
	return br.b[0], nil
}

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return mapEOF(err)
	}
	return nil
}

func mapEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}
