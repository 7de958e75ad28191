package wire

import (
	"bytes"
	"errors"
	"math/rand"
	"net"
	"reflect"
	"testing"
	"time"
)

func TestEncodeGolden(t *testing.T) {
	tests := []struct {
		name string
		msg  *HandshakeMessage
		want []byte
	}{
		{
			name: "minimal",
			msg: &HandshakeMessage{
				Timestamp: 0,
				AgentName: "evan",
				Version:   Version{3, 3, 6},
			},
			want: []byte{
				0x00,                   // timestamp
				0x04, 'e', 'v', 'a', 'n', // agent name
				3, 3, 6, // version
				0x00, // no declared address
				0x00, // no features
			},
		},
		{
			name: "address and feature",
			msg: &HandshakeMessage{
				Timestamp:    0,
				AgentName:    "evan",
				Version:      Version{3, 3, 6},
				DeclaredAddr: &PeerAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9030},
				Features:     []Feature{{Tag: 0x10, Data: []byte{0xde, 0xad}}},
			},
			want: []byte{
				0x00,
				0x04, 'e', 'v', 'a', 'n',
				3, 3, 6,
				0x01, 127, 0, 0, 1, 0x23, 0x46, // 9030 = 0x2346
				0x01, 0x10, 0x02, 0xde, 0xad,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("Encode = %x, want %x", got, tt.want)
			}
		})
	}
}

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  *HandshakeMessage
	}{
		{
			name: "empty agent name",
			msg: &HandshakeMessage{
				Timestamp: 1700000000000,
				AgentName: "",
				Version:   Version{0, 0, 0},
			},
		},
		{
			name: "multi-byte utf-8 name",
			msg: &HandshakeMessage{
				Timestamp: 1700000000000,
				AgentName: "ergo-ノード☃",
				Version:   Version{255, 255, 255},
			},
		},
		{
			name: "declared address",
			msg: &HandshakeMessage{
				Timestamp:    42,
				AgentName:    "ergo-node",
				Version:      Version{5, 0, 21},
				DeclaredAddr: &PeerAddr{IP: net.IPv4(203, 0, 113, 7), Port: 65535},
			},
		},
		{
			name: "features with empty and large blobs",
			msg: &HandshakeMessage{
				Timestamp: 1,
				AgentName: "evan",
				Version:   Version{3, 3, 6},
				Features: []Feature{
					{Tag: 0x00, Data: []byte{}},
					{Tag: 0x10, Data: bytes.Repeat([]byte{0xab}, 1000)},
					{Tag: 0xff, Data: []byte{0x01}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			decoded, err := DecodeBytes(encoded)
			if err != nil {
				t.Fatalf("DecodeBytes failed: %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.msg) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, tt.msg)
			}
		})
	}
}

func TestCodecRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	alphabet := []rune("abcdefghijklmnopqrstuvwxyz-0123456789ノードエルゴ☃é")

	for i := 0; i < 200; i++ {
		name := make([]rune, rng.Intn(40))
		for j := range name {
			name[j] = alphabet[rng.Intn(len(alphabet))]
		}

		msg := &HandshakeMessage{
			Timestamp: rng.Uint64(),
			AgentName: string(name),
			Version: Version{
				Major: uint8(rng.Intn(256)),
				Minor: uint8(rng.Intn(256)),
				Patch: uint8(rng.Intn(256)),
			},
		}
		if rng.Intn(2) == 1 {
			msg.DeclaredAddr = &PeerAddr{
				IP: net.IPv4(
					byte(rng.Intn(256)), byte(rng.Intn(256)),
					byte(rng.Intn(256)), byte(rng.Intn(256)),
				),
				Port: uint16(rng.Intn(1 << 16)),
			}
		}
		for j := rng.Intn(4); j > 0; j-- {
			blob := make([]byte, rng.Intn(512))
			rng.Read(blob)
			msg.Features = append(msg.Features, Feature{
				Tag:  uint8(rng.Intn(256)),
				Data: blob,
			})
		}

		encoded, err := Encode(msg)
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		decoded, err := DecodeBytes(encoded)
		if err != nil {
			t.Fatalf("DecodeBytes failed: %v (message %+v)", err, msg)
		}
		if !reflect.DeepEqual(decoded, msg) {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", decoded, msg)
		}
	}
}

func TestDecodeTruncatedPrefixes(t *testing.T) {
	msg := &HandshakeMessage{
		Timestamp:    1700000000000,
		AgentName:    "ergo-node",
		Version:      Version{5, 0, 21},
		DeclaredAddr: &PeerAddr{IP: net.IPv4(10, 0, 0, 1), Port: 9030},
		Features: []Feature{
			{Tag: 0x10, Data: []byte{0x01, 0x02, 0x03}},
		},
	}
	encoded, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Every strict prefix of a valid message must fail cleanly, never
	// succeed with a shorter message.
	for i := 0; i < len(encoded); i++ {
		if _, err := DecodeBytes(encoded[:i]); !errors.Is(err, ErrTruncated) {
			t.Fatalf("prefix of %d bytes: error = %v, want ErrTruncated", i, err)
		}
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	encoded, err := Encode(&HandshakeMessage{AgentName: "evan", Version: Version{3, 3, 6}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	_, err = DecodeBytes(append(encoded, 0xba, 0xad))
	if !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("error = %v, want ErrTrailingBytes", err)
	}
}

func TestDecodeStopsAtMessageEnd(t *testing.T) {
	encoded, err := Encode(&HandshakeMessage{AgentName: "evan", Version: Version{3, 3, 6}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	trailing := []byte{0xca, 0xfe}
	r := bytes.NewReader(append(append([]byte{}, encoded...), trailing...))

	if _, err := Decode(r); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	rest := make([]byte, r.Len())
	r.Read(rest)
	if !bytes.Equal(rest, trailing) {
		t.Fatalf("decode consumed past message end, remaining = %x", rest)
	}
}

func TestDecodeInvalidAddrFlag(t *testing.T) {
	input := []byte{
		0x00,
		0x04, 'e', 'v', 'a', 'n',
		3, 3, 6,
		0x02, // flag must be 0 or 1
	}
	_, err := DecodeBytes(input)
	if !errors.Is(err, ErrInvalidAddrFlag) {
		t.Fatalf("error = %v, want ErrInvalidAddrFlag", err)
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	input := []byte{
		0x00,
		0x02, 0xff, 0xfe, // not valid utf-8
		3, 3, 6,
		0x00,
		0x00,
	}
	_, err := DecodeBytes(input)
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("error = %v, want ErrInvalidUTF8", err)
	}
}

func TestDecodeRejectsHugeNameLength(t *testing.T) {
	// A declared length of 5,000,000 bytes must be rejected up front,
	// before any attempt to read or allocate that much.
	input := AppendUvlq([]byte{0x00}, 5_000_000)
	_, err := DecodeBytes(input)
	if !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("error = %v, want ErrNameTooLong", err)
	}
}

func TestDecodeRejectsHugeBlobLength(t *testing.T) {
	input := []byte{
		0x00,
		0x04, 'e', 'v', 'a', 'n',
		3, 3, 6,
		0x00,
		0x01, // one feature
		0x42, // tag
	}
	input = AppendUvlq(input, uint64(MaxFeatureBlob)+1)
	_, err := DecodeBytes(input)
	if !errors.Is(err, ErrBlobTooLong) {
		t.Fatalf("error = %v, want ErrBlobTooLong", err)
	}
}

func TestDecodeRejectsHugeFeatureCount(t *testing.T) {
	input := []byte{
		0x00,
		0x04, 'e', 'v', 'a', 'n',
		3, 3, 6,
		0x00,
	}
	input = AppendUvlq(input, uint64(MaxFeatureCount)+1)
	_, err := DecodeBytes(input)
	if !errors.Is(err, ErrTooManyFeatures) {
		t.Fatalf("error = %v, want ErrTooManyFeatures", err)
	}
}

func TestEncodeRejectsInvalidMessages(t *testing.T) {
	tooLong := make([]byte, MaxAgentNameLen+1)
	for i := range tooLong {
		tooLong[i] = 'a'
	}

	tests := []struct {
		name    string
		msg     *HandshakeMessage
		wantErr error
	}{
		{
			name:    "agent name too long",
			msg:     &HandshakeMessage{AgentName: string(tooLong)},
			wantErr: ErrNameTooLong,
		},
		{
			name: "non-ipv4 declared address",
			msg: &HandshakeMessage{
				AgentName:    "evan",
				DeclaredAddr: &PeerAddr{IP: net.ParseIP("2001:db8::1"), Port: 9030},
			},
			wantErr: ErrNotIPv4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.msg); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Encode error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
