// Package wire implements the bit-exact framing and handshake-rewriting
// logic that the hub uses to impersonate nodes to their peers.
//
// The wire format is a fixed 24-byte header (4-byte magic, 12-byte
// NUL-padded ASCII command, 4-byte little-endian payload length, 4-byte
// checksum) followed immediately by the payload. It is grounded on the
// header-then-payload framing seen in modules/gateway/tcpserver.go's
// handleConn (read an 8-byte identifier, then dispatch) generalized to the
// full 24-byte header this protocol actually uses, and on the original
// Python NodesHub.process_buffer, which this package re-implements as a
// pure function instead of a method with side effects on transport state.
package wire

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/NebulousLabs/errors"
)

const (
	// HeaderLen is the size in bytes of the fixed frame header: 4-byte
	// magic, 12-byte command, 4-byte length, 4-byte checksum.
	HeaderLen = 4 + 12 + 4 + 4

	// ChecksumLen is the size in bytes of the truncated double-SHA256
	// checksum stored in the header.
	ChecksumLen = 4

	magicLen   = 4
	commandLen = 12
	lengthLen  = 4

	// VersionPortOffset is the byte offset within a "version" payload of
	// the 2-byte big-endian advertised listening port, per the protocol
	// this hub interposes on.
	VersionPortOffset = 4 + 8 + 8 + 26 + 8 + 16

	versionCommand = "version"

	// MaxPayloadLen bounds how large a single frame's payload may claim to
	// be before the scanner refuses to wait for it. This guards against a
	// peer (mis)reporting an enormous length and making ReceiveBuffer grow
	// without bound while waiting for bytes that will never arrive.
	MaxPayloadLen = 32 << 20 // 32 MiB
)

// ErrMalformedFrame is returned when a frame's declared length cannot
// plausibly be satisfied (e.g. claims a payload larger than MaxPayloadLen,
// or a version payload too short to contain the port field).
var ErrMalformedFrame = errors.New("malformed frame")

// ErrUnknownPort is the error a PortRewriter should return when asked to
// rewrite a non-zero advertised port it cannot map to a node, per spec.md
// §4.5 step 6.
var ErrUnknownPort = errors.New("advertised port does not map to a known node")

// PortRewriter maps an advertised port, as seen in a "version" payload, to
// the port that should be advertised in its place. It returns an error if
// the advertised port is non-zero and unknown, per spec.md §4.5 step 6 ("the
// lookup misses, this is a protocol error").
type PortRewriter func(advertisedPort uint16) (rewrittenPort uint16, err error)

// command reads the NUL-terminated command string out of a 12-byte command
// field.
func command(field []byte) string {
	for i, b := range field {
		if b == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// hash256 is the double-SHA256 used by the wire protocol's checksum field.
// The algorithm is fixed by the protocol, not a design choice of this
// package (see spec.md §1's scoping of the hashing primitive as an external
// collaborator), so it is implemented directly against the standard
// library rather than through a pluggable hash interface.
func hash256(data []byte) [32]byte {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Scan consumes as many complete frames as are available at the front of
// buf. For each frame whose command is "version" it rewrites the advertised
// port via rewrite and recomputes the header checksum; every other frame is
// passed through byte for byte. It returns the rewritten bytes to write (in
// order), the unconsumed remainder of buf, and the first error encountered
// (if any, teardown is the caller's responsibility — see spec.md §4.6).
//
// Scan never mutates buf or any frame argument passed to rewrite; all
// outputs are freshly allocated slices. This is required for the purity
// property in spec.md §8 invariant 4: scanning the same bytes under the
// same port mapping twice must produce the same result.
func Scan(buf []byte, rewrite PortRewriter) (written [][]byte, rest []byte, err error) {
	rest = buf
	for {
		if len(rest) <= HeaderLen {
			return written, rest, nil
		}

		payloadLen := binary.LittleEndian.Uint32(rest[magicLen+commandLen : magicLen+commandLen+lengthLen])
		if payloadLen > MaxPayloadLen {
			return written, rest, errors.Extend(ErrMalformedFrame, errors.New("payload length exceeds maximum"))
		}

		frameLen := HeaderLen + int(payloadLen)
		if len(rest) < frameLen {
			return written, rest, nil
		}

		cmd := command(rest[magicLen : magicLen+commandLen])
		payload := rest[HeaderLen:frameLen]

		var out []byte
		if cmd == versionCommand {
			out, err = rewriteVersionFrame(rest[:HeaderLen], payload, rewrite)
			if err != nil {
				return written, rest, err
			}
		} else {
			out = append([]byte(nil), rest[:frameLen]...)
		}

		written = append(written, out)
		rest = rest[frameLen:]
	}
}

// rewriteVersionFrame rewrites the advertised port inside a "version"
// payload and recomputes the header checksum over the rewritten payload,
// per spec.md §4.5 step 6 and §6's frame table.
func rewriteVersionFrame(header, payload []byte, rewrite PortRewriter) ([]byte, error) {
	if len(payload) < VersionPortOffset+2 {
		return nil, errors.Extend(ErrMalformedFrame, errors.New("version payload too short for port field"))
	}

	advertised := binary.BigEndian.Uint16(payload[VersionPortOffset : VersionPortOffset+2])

	var rewritten uint16
	if advertised != 0 {
		var err error
		rewritten, err = rewrite(advertised)
		if err != nil {
			return nil, err
		}
	}

	newPayload := append([]byte(nil), payload...)
	binary.BigEndian.PutUint16(newPayload[VersionPortOffset:VersionPortOffset+2], rewritten)

	checksum := hash256(newPayload)

	newHeader := append([]byte(nil), header...)
	copy(newHeader[HeaderLen-ChecksumLen:], checksum[:ChecksumLen])

	return append(newHeader, newPayload...), nil
}
