package wire

import (
	"errors"
	"io"
)

// MaxVlqLen is the longest valid VLQ encoding of a 64-bit value.
const MaxVlqLen = 10

var (
	ErrTruncated   = errors.New("truncated input")
	ErrVlqOverflow = errors.New("vlq value overflows 64 bits")
)

// AppendUvlq appends the VLQ encoding of v to dst and returns the
// extended slice. Zero encodes as a single zero byte.
func AppendUvlq(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// ReadUvlq reads a VLQ-encoded unsigned integer from r.
//
// It returns ErrTruncated if the input ends before a terminating byte and
// ErrVlqOverflow if no terminating byte appears within MaxVlqLen bytes, so
// a hostile stream of continuation bytes can never loop forever.
func ReadUvlq(r io.ByteReader) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < MaxVlqLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, ErrTruncated
			}
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
	}
	return 0, ErrVlqOverflow
}
