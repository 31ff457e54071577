package packr

import "testing"

func TestBuildParseFrameRoundTrip(t *testing.T) {
	body := []byte{0xD7, 0xD8, 0xD9}
	frame := buildFrame(flagDictReset, 3, body)

	pf, err := parseFrame(frame)
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if pf.Version != wireVersion {
		t.Errorf("version = %d", pf.Version)
	}
	if pf.Flags != flagDictReset {
		t.Errorf("flags = %#x", pf.Flags)
	}
	if pf.SymbolCount != 3 {
		t.Errorf("symbol count = %d", pf.SymbolCount)
	}
	if string(pf.Body) != string(body) {
		t.Errorf("body = %v, want %v", pf.Body, body)
	}
}

func TestParseFrameRejectsBadMagic(t *testing.T) {
	frame := buildFrame(0, 0, nil)
	frame[0] ^= 0xFF
	if _, err := parseFrame(frame); err == nil {
		t.Fatal("expected bad magic error")
	}
}

func TestParseFrameRejectsCRCMismatch(t *testing.T) {
	frame := buildFrame(0, 0, []byte{0xD9})
	frame[len(frame)-1] ^= 0xFF
	_, err := parseFrame(frame)
	if err == nil {
		t.Fatal("expected CRC mismatch error")
	}
	if _, ok := err.(*CRCMismatchError); !ok {
		t.Errorf("expected *CRCMismatchError, got %T", err)
	}
}

func TestParseFrameRejectsShortFrame(t *testing.T) {
	if _, err := parseFrame([]byte{0x50, 0x4B}); err == nil {
		t.Fatal("expected too-short error")
	}
}

func TestParseFrameRejectsReservedFlagBits(t *testing.T) {
	frame := buildFrame(0, 0, nil)
	frame[5] |= 0x80
	// Recompute CRC so the reserved-bit check is what trips, not CRC.
	crc := computeCRC(frame[:len(frame)-4])
	frame[len(frame)-4] = byte(crc)
	frame[len(frame)-3] = byte(crc >> 8)
	frame[len(frame)-2] = byte(crc >> 16)
	frame[len(frame)-1] = byte(crc >> 24)
	if _, err := parseFrame(frame); err == nil {
		t.Fatal("expected reserved-flag-bits error")
	}
}

func TestLZ77WrapUnwrapMarker(t *testing.T) {
	wrapped := wrapLZ77([]byte{1, 2, 3})
	if !isLZ77Wrapped(wrapped) {
		t.Fatal("expected wrapped marker to be detected")
	}
	if isLZ77Wrapped([]byte{1, 2, 3}) {
		t.Fatal("unwrapped data should not be detected as wrapped")
	}
}
