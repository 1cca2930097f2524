package wire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildFrame assembles a single well-formed frame with the given command
// and payload, computing length and checksum the way a real peer would.
func buildFrame(cmd string, payload []byte) []byte {
	var header [HeaderLen]byte
	copy(header[0:4], "MAGC")
	copy(header[4:16], cmd)
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(payload)))
	sum := hash256(payload)
	copy(header[20:24], sum[:ChecksumLen])
	return append(header[:], payload...)
}

// versionPayload builds a minimal version payload long enough to carry the
// port field at VersionPortOffset, with the rest zeroed.
func versionPayload(port uint16) []byte {
	payload := make([]byte, VersionPortOffset+2+8)
	binary.BigEndian.PutUint16(payload[VersionPortOffset:VersionPortOffset+2], port)
	return payload
}

func noopRewrite(p uint16) (uint16, error) { return p, nil }

func TestScanWaitsForFullHeader(t *testing.T) {
	buf := make([]byte, HeaderLen)
	written, rest, err := Scan(buf, noopRewrite)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 0 {
		t.Fatal("expected no frames to be ready")
	}
	if !bytes.Equal(rest, buf) {
		t.Fatal("buffer should be returned unchanged")
	}
}

func TestScanWaitsForFullPayload(t *testing.T) {
	full := buildFrame("ping", []byte("hello world"))
	partial := full[:len(full)-3]
	written, rest, err := Scan(partial, noopRewrite)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 0 {
		t.Fatal("expected no frames to be ready")
	}
	if !bytes.Equal(rest, partial) {
		t.Fatal("buffer should be returned unchanged")
	}
}

// TestScanRoundTripsNonVersionFrames covers spec.md §8 invariant 5.
func TestScanRoundTripsNonVersionFrames(t *testing.T) {
	frame := buildFrame("ping", []byte("hello world"))
	written, rest, err := Scan(frame, noopRewrite)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatal("expected buffer to be fully consumed")
	}
	if len(written) != 1 || !bytes.Equal(written[0], frame) {
		t.Fatal("non-version frame should pass through unchanged")
	}
}

// TestScanRewritesVersionPort covers spec.md §8 invariant 6 and scenario (b).
func TestScanRewritesVersionPort(t *testing.T) {
	const advertised = uint16(18333)
	const rewrittenWant = uint16(28333)

	frame := buildFrame(versionCommand, versionPayload(advertised))
	rewrite := func(p uint16) (uint16, error) {
		if p != advertised {
			t.Fatalf("rewrite called with unexpected port %d", p)
		}
		return rewrittenWant, nil
	}

	written, rest, err := Scan(frame, rewrite)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatal("expected buffer to be fully consumed")
	}
	if len(written) != 1 {
		t.Fatalf("expected exactly one rewritten frame, got %d", len(written))
	}
	out := written[0]

	gotPayload := out[HeaderLen:]
	gotPort := binary.BigEndian.Uint16(gotPayload[VersionPortOffset : VersionPortOffset+2])
	if gotPort != rewrittenWant {
		t.Fatalf("expected rewritten port %d, got %d", rewrittenWant, gotPort)
	}

	// Only the two port bytes should differ from the original payload.
	origPayload := versionPayload(advertised)
	diffs := 0
	for i := range origPayload {
		if origPayload[i] != gotPayload[i] {
			diffs++
		}
	}
	if diffs != 2 {
		t.Fatalf("expected exactly 2 changed bytes, got %d", diffs)
	}

	wantChecksum := hash256(gotPayload)
	if !bytes.Equal(out[HeaderLen-ChecksumLen:HeaderLen], wantChecksum[:ChecksumLen]) {
		t.Fatal("checksum was not recomputed over the rewritten payload")
	}
}

// TestScanZeroPortPassthrough covers scenario (c): a version frame
// advertising port 0 stays 0, but the checksum is still recomputed.
func TestScanZeroPortPassthrough(t *testing.T) {
	called := false
	rewrite := func(p uint16) (uint16, error) {
		called = true
		return 9999, nil
	}

	frame := buildFrame(versionCommand, versionPayload(0))
	written, _, err := Scan(frame, rewrite)
	if err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("rewrite should not be called for a zero advertised port")
	}
	gotPayload := written[0][HeaderLen:]
	gotPort := binary.BigEndian.Uint16(gotPayload[VersionPortOffset : VersionPortOffset+2])
	if gotPort != 0 {
		t.Fatalf("expected port to remain 0, got %d", gotPort)
	}
}

// TestScanUnknownPortErrors covers the "lookup misses" protocol error from
// spec.md §4.5 step 6.
func TestScanUnknownPortErrors(t *testing.T) {
	frame := buildFrame(versionCommand, versionPayload(4321))
	rewrite := func(p uint16) (uint16, error) { return 0, ErrUnknownPort }

	_, _, err := Scan(frame, rewrite)
	if err == nil {
		t.Fatal("expected an error for an unknown advertised port")
	}
}

// TestScanCoalescedFrames covers scenario (d): two frames arriving in one
// read are both scanned, in order.
func TestScanCoalescedFrames(t *testing.T) {
	first := buildFrame("ping", []byte("one"))
	second := buildFrame(versionCommand, versionPayload(100))
	buf := append(append([]byte(nil), first...), second...)

	rewrite := func(p uint16) (uint16, error) { return 200, nil }
	written, rest, err := Scan(buf, rewrite)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Fatal("expected buffer to be fully consumed")
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(written))
	}
	if !bytes.Equal(written[0], first) {
		t.Fatal("first frame should pass through unchanged")
	}
	gotPort := binary.BigEndian.Uint16(written[1][HeaderLen+VersionPortOffset : HeaderLen+VersionPortOffset+2])
	if gotPort != 200 {
		t.Fatalf("expected second frame's port rewritten to 200, got %d", gotPort)
	}
}

// TestScanIsPure covers spec.md §8 invariant 4: scanning the same input
// twice yields the same output and does not mutate the input.
func TestScanIsPure(t *testing.T) {
	frame := buildFrame(versionCommand, versionPayload(555))
	original := append([]byte(nil), frame...)
	rewrite := func(p uint16) (uint16, error) { return 777, nil }

	written1, rest1, err1 := Scan(frame, rewrite)
	if err1 != nil {
		t.Fatal(err1)
	}
	if !bytes.Equal(frame, original) {
		t.Fatal("Scan must not mutate its input buffer")
	}
	written2, rest2, err2 := Scan(frame, rewrite)
	if err2 != nil {
		t.Fatal(err2)
	}
	if !bytes.Equal(rest1, rest2) || len(written1) != len(written2) {
		t.Fatal("Scan should be deterministic")
	}
	for i := range written1 {
		if !bytes.Equal(written1[i], written2[i]) {
			t.Fatal("Scan should be deterministic")
		}
	}
}
