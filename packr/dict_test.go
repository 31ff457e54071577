package packr

import "testing"

func TestDictionaryGetOrAddHitsAndMisses(t *testing.T) {
	var d dictionary
	slot1, isNew, evicted := d.getOrAdd("alpha")
	if !isNew || evicted != -1 {
		t.Fatalf("first insert: isNew=%v evicted=%d", isNew, evicted)
	}
	slot2, isNew, _ := d.getOrAdd("alpha")
	if isNew || slot2 != slot1 {
		t.Fatalf("repeat insert: isNew=%v slot=%d want %d", isNew, slot2, slot1)
	}
}

func TestDictionaryEvictsLeastRecentlyUsed(t *testing.T) {
	var d dictionary
	for i := 0; i < dictSize; i++ {
		d.getOrAdd(keyFor(i))
	}
	// Touch every slot except slot 0's key, so it becomes the LRU victim.
	for i := 1; i < dictSize; i++ {
		d.lookup(keyFor(i))
	}
	slot, isNew, evicted := d.getOrAdd("overflow")
	if !isNew {
		t.Fatal("expected new insert")
	}
	if evicted != 0 {
		t.Errorf("expected slot 0 evicted (LRU), got %d", evicted)
	}
	if slot != 0 {
		t.Errorf("expected overflow value to land in evicted slot 0, got %d", slot)
	}
	if _, ok := d.lookup(keyFor(0)); ok {
		t.Error("evicted key should no longer be found")
	}
}

func TestDictionaryValueAtUnoccupiedSlot(t *testing.T) {
	var d dictionary
	if _, ok := d.valueAt(5); ok {
		t.Error("expected unoccupied slot to report ok=false")
	}
}

func TestDictionaryReset(t *testing.T) {
	var d dictionary
	d.getOrAdd("alpha")
	d.reset()
	if _, ok := d.lookup("alpha"); ok {
		t.Error("expected dictionary to be empty after reset")
	}
}

func keyFor(i int) string {
	return string([]byte{byte('a' + i%26), byte('0' + i/26)})
}
