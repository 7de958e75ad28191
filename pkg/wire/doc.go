// Package wire implements the binary handshake message format exchanged
// between nodes when a connection is established.
//
// # Message Format
//
// A handshake message is the first thing written on a fresh stream, with
// no framing header, length prefix or checksum around it. Fields appear
// in this order:
//
//   - Timestamp (VLQ): milliseconds since the Unix epoch at send time
//   - Agent name: VLQ byte length followed by raw UTF-8 bytes
//   - Version (3 bytes): major, minor, patch
//   - Declared address: 1 flag byte (0 = absent, 1 = present); if present,
//     4 bytes of IPv4 address and 2 bytes of port, both network order
//   - Features: VLQ entry count; each entry is 1 tag byte, a VLQ blob
//     length and the raw blob bytes
//
// Unsigned integers use VLQ (LEB128) encoding: 7 data bits per byte in the
// low bits, high bit set while more bytes follow, least significant group
// first.
//
// The byte layout is the compatibility contract with the remote node, not
// an implementation detail. Decoding consumes exactly the bytes the length
// prefixes declare and enforces size bounds before allocating, so a
// hostile peer cannot force unbounded reads or allocations.
package wire
