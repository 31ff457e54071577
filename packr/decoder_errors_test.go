package packr

import (
	"errors"
	"testing"
)

func frameOf(t *testing.T, body []byte) []byte {
	t.Helper()
	return buildFrame(0, 0, body)
}

func TestDecodeRejectsUnknownToken(t *testing.T) {
	// 0xE0 isn't assigned to anything in the ultra token set.
	frame := frameOf(t, []byte{0xE0})
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); !errors.Is(err, ErrBadToken) {
		t.Errorf("got %v, want ErrBadToken", err)
	}
}

func TestDecodeRejectsFieldRefOutsideObject(t *testing.T) {
	frame := frameOf(t, []byte{0x00}) // field-ref slot 0, no object context
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); !errors.Is(err, ErrBadToken) {
		t.Errorf("got %v, want ErrBadToken", err)
	}
}

func TestDecodeRejectsStringRefOnEmptyDict(t *testing.T) {
	frame := frameOf(t, []byte{0x40}) // string-ref slot 0, nothing registered
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); err != ErrDictOverflow {
		t.Errorf("got %v, want ErrDictOverflow", err)
	}
}

func TestDecodeRejectsMACRefOnEmptyDict(t *testing.T) {
	frame := frameOf(t, []byte{0x80}) // MAC-ref slot 0, nothing registered
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); err != ErrDictOverflow {
		t.Errorf("got %v, want ErrDictOverflow", err)
	}
}

func TestDecodeRejectsDeltaWithoutBase(t *testing.T) {
	// tokDeltaZero with no prior absolute value to diff against.
	frame := frameOf(t, []byte{byte(tokDeltaZero)})
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); err != ErrDeltaWithoutBase {
		t.Errorf("got %v, want ErrDeltaWithoutBase", err)
	}
}

func TestDecodeRejectsNewFieldOutsideObject(t *testing.T) {
	frame := frameOf(t, []byte{byte(tokNewField)})
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); !errors.Is(err, ErrBadToken) {
		t.Errorf("got %v, want ErrBadToken", err)
	}
}

func TestDecodeRejectsTruncatedString(t *testing.T) {
	// tokNewString claims a 10-byte string but the body ends after 2.
	frame := frameOf(t, []byte{byte(tokNewString), 10, 'h', 'i'})
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); err == nil {
		t.Error("expected truncation error, got nil")
	}
}

func TestDecodeRejectsTruncatedMAC(t *testing.T) {
	frame := frameOf(t, []byte{byte(tokNewMAC), 1, 2, 3}) // needs 6 bytes
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); err == nil {
		t.Error("expected truncation error, got nil")
	}
}

func TestDecodeRejectsMismatchedArrayEnd(t *testing.T) {
	// array declares 1 element, but what follows the element isn't
	// tokArrayEnd.
	body := []byte{byte(tokArrayStart), 1, byte(tokNull), byte(tokObjectEnd)}
	frame := frameOf(t, body)
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); !errors.Is(err, ErrBadToken) {
		t.Errorf("got %v, want ErrBadToken", err)
	}
}

func TestDecodeRejectsNonFieldTokenInObjectBody(t *testing.T) {
	// Object body expects a field token (ref or new-field) but gets a bare
	// value token instead.
	body := []byte{byte(tokObjectStart), byte(tokNull)}
	frame := frameOf(t, body)
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if _, err := dec.Decode(); !errors.Is(err, ErrBadToken) {
		t.Errorf("got %v, want ErrBadToken", err)
	}
}

func TestNewDecoderRejectsUnparseableFrame(t *testing.T) {
	if _, err := NewDecoder([]byte{0x01, 0x02}); err == nil {
		t.Error("expected error for a too-short, non-frame input")
	}
}

func TestMoreReflectsRemainingBody(t *testing.T) {
	frame := frameOf(t, []byte{byte(tokNull), byte(tokBoolTrue)})
	dec, err := NewDecoder(frame)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if !dec.More() {
		t.Fatal("expected More() true before any Decode")
	}
	if _, err := dec.Decode(); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !dec.More() {
		t.Fatal("expected More() true after first Decode")
	}
	if _, err := dec.Decode(); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dec.More() {
		t.Error("expected More() false once body is exhausted")
	}
}
