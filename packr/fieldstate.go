package packr

// numKind distinguishes the two shapes of numeric value a field's delta
// state can hold: a plain integer, or a fixed-point value (always tracked
// at 16.16 scale internally regardless of whether the absolute value was
// emitted as FLOAT16 or FLOAT32; see DESIGN.md Open Question 4).
type numKind uint8

const (
	numNone numKind = iota
	numInt
	numFixed
)

// fieldNumState is the (last_value, last_kind) pair bound to one field
// dictionary slot. Evicting that slot MUST clear this, enforced at the
// single eviction point in encoder/decoder, not here.
type fieldNumState struct {
	kind numKind
	i    int32
	f    float64 // logical (unscaled) value; delta arithmetic happens at 1/65536
}

// fieldStates is the per-field numeric state array, indexed 0..63 by field
// dictionary slot.
type fieldStates [dictSize]fieldNumState

func (s *fieldStates) reset() {
	*s = fieldStates{}
}

func (s *fieldStates) clear(slot int) {
	s[slot] = fieldNumState{}
}
