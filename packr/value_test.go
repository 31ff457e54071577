package packr

import "testing"

func TestParseMACStringAcceptsColonAndDash(t *testing.T) {
	tests := []string{"AA:BB:CC:DD:EE:FF", "aa-bb-cc-dd-ee-ff"}
	want := [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for _, s := range tests {
		v, ok := ParseMACString(s)
		if !ok {
			t.Fatalf("ParseMACString(%q) failed", s)
		}
		if v.mac != want {
			t.Errorf("ParseMACString(%q) = %v, want %v", s, v.mac, want)
		}
	}
}

func TestParseMACStringRejectsNonMAC(t *testing.T) {
	tests := []string{"hello", "AA:BB:CC:DD:EE", "AA:BB:CC:DD:EE:GG"}
	for _, s := range tests {
		if _, ok := ParseMACString(s); ok {
			t.Errorf("ParseMACString(%q) unexpectedly succeeded", s)
		}
	}
}

func TestMACStringRoundTrip(t *testing.T) {
	v, ok := ParseMACString("01:02:03:04:05:06")
	if !ok {
		t.Fatal("parse failed")
	}
	if got := v.MACString(); got != "01:02:03:04:05:06" {
		t.Errorf("got %q", got)
	}
}

func TestObjGetAndLen(t *testing.T) {
	obj := Obj(F("a", Int(1)), F("b", Str("x")))
	if obj.Len() != 2 {
		t.Errorf("Len() = %d", obj.Len())
	}
	if v := obj.Get("b"); v == nil || v.s != "x" {
		t.Errorf("Get(b) = %v", v)
	}
	if obj.Get("missing") != nil {
		t.Error("expected nil for missing key")
	}
}

func TestArrAtAndLen(t *testing.T) {
	arr := Arr(Int(1), Int(2), Int(3))
	if arr.Len() != 3 {
		t.Errorf("Len() = %d", arr.Len())
	}
	if v := arr.At(1); v == nil || v.i != 2 {
		t.Errorf("At(1) = %v", v)
	}
	if arr.At(99) != nil {
		t.Error("expected nil for out-of-range index")
	}
}
