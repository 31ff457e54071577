package packr

import "testing"

func TestFieldStringMACRefTokens(t *testing.T) {
	for slot := 0; slot < dictSize; slot++ {
		fb := fieldRefToken(slot)
		if !isFieldRef(fb) || dictSlot(fb) != slot {
			t.Errorf("field ref slot %d: byte %#x", slot, fb)
		}
		sb := stringRefToken(slot)
		if !isStringRef(sb) || dictSlot(sb) != slot {
			t.Errorf("string ref slot %d: byte %#x", slot, sb)
		}
		mb := macRefToken(slot)
		if !isMACRef(mb) || dictSlot(mb) != slot {
			t.Errorf("mac ref slot %d: byte %#x", slot, mb)
		}
	}
}

func TestDeltaSmallEncodeDecodeRoundTrip(t *testing.T) {
	for delta := int32(deltaSmallMin); delta <= deltaSmallMax; delta++ {
		b := encodeDeltaSmall(delta)
		if !isDeltaSmall(b) {
			t.Fatalf("encoded delta %d produced non-delta-small byte %#x", delta, b)
		}
		if got := decodeDeltaSmall(b); got != delta {
			t.Errorf("delta %d round trip got %d", delta, got)
		}
	}
}

func TestTokenRangesDontOverlap(t *testing.T) {
	for b := 0; b <= 0xFF; b++ {
		kinds := 0
		if isFieldRef(byte(b)) {
			kinds++
		}
		if isStringRef(byte(b)) {
			kinds++
		}
		if isMACRef(byte(b)) {
			kinds++
		}
		if kinds > 1 {
			t.Errorf("byte %#x matches %d ref kinds", b, kinds)
		}
	}
}
