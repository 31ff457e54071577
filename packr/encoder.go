package packr

import "fmt"

// Options configures an Encoder. Compress controls whether Finish wraps
// the framed bytes with the LZ77 post-transform (see DESIGN.md Open
// Question 3).
type Options struct {
	// Compress wraps the finished frame with the LZ77 post-transform when
	// doing so is worthwhile (the expansion guard always applies).
	Compress bool
}

// DefaultOptions returns the zero-value Options (no compression).
func DefaultOptions() Options {
	return Options{}
}

// Encoder turns a sequence of Values into a single framed PACKR byte
// stream. It owns its dictionaries and per-field delta state; it is not
// safe for concurrent use, and is not reusable across independent logical
// streams without calling Reset.
type Encoder struct {
	opts Options

	dicts  dictionarySet
	fields fieldStates

	curField int // dictionary slot of the most recently emitted field token, or -1
	depth    int // open object/array nesting, for the unbalanced-container check

	body        []byte
	symbolCount int
	dictReset   bool

	Stats Stats
}

// NewEncoder returns a new Encoder ready to encode one framed stream.
func NewEncoder(opts Options) *Encoder {
	e := &Encoder{opts: opts, curField: -1}
	return e
}

// Reset clears all dictionaries, per-field state, and buffered body bytes,
// starting a fresh logical stream (per spec Non-goals: streams never
// share dictionaries; this is how a caller deliberately starts a new one
// while reusing the Encoder allocation).
func (e *Encoder) Reset() {
	e.dicts.reset()
	e.fields.reset()
	e.curField = -1
	e.depth = 0
	e.body = e.body[:0]
	e.symbolCount = 0
	e.dictReset = false
}

func (e *Encoder) emitToken(t token) {
	e.body = append(e.body, byte(t))
	e.symbolCount++
}

func (e *Encoder) emitByte(b byte) {
	e.body = append(e.body, b)
	e.symbolCount++
}

func (e *Encoder) appendRaw(b []byte) {
	e.body = append(e.body, b...)
}

// Encode appends v's wire representation to the current frame body. Call
// Finish to produce the complete framed (and optionally LZ77-wrapped)
// byte stream.
func (e *Encoder) Encode(v *Value) error {
	return e.encodeValue(v)
}

func (e *Encoder) encodeValue(v *Value) error {
	if v == nil {
		e.emitToken(tokNull)
		return nil
	}
	switch v.kind {
	case KindNull:
		e.emitToken(tokNull)
		return nil
	case KindBool:
		if v.b {
			e.emitToken(tokBoolTrue)
		} else {
			e.emitToken(tokBoolFalse)
		}
		return nil
	case KindInt:
		e.encodeInt(int32(v.i))
		return nil
	case KindFloat:
		e.encodeFloat(v.f)
		return nil
	case KindDouble:
		e.encodeDouble(v.f)
		return nil
	case KindString:
		if mv, ok := ParseMACString(v.s); ok {
			e.encodeMAC(mv.mac)
			return nil
		}
		e.encodeString(v.s)
		return nil
	case KindMAC:
		e.encodeMAC(v.mac)
		return nil
	case KindBinary:
		e.encodeBinary(v.bin)
		return nil
	case KindArray:
		return e.encodeArray(v.arr)
	case KindObject:
		return e.encodeObject(v.obj)
	default:
		return fmt.Errorf("packr: unknown value kind %v", v.kind)
	}
}

func (e *Encoder) encodeObject(fields []Field) error {
	e.emitToken(tokObjectStart)
	e.depth++
	for _, f := range fields {
		e.encodeField(f.Name)
		if err := e.encodeValue(f.Value); err != nil {
			return err
		}
	}
	e.depth--
	e.emitToken(tokObjectEnd)
	return nil
}

func (e *Encoder) encodeArray(elems []*Value) error {
	if isUltraBatchCandidate(elems) {
		if len(elems) >= streamBatchMinRows {
			return e.encodeArrayStream(elems)
		}
		return e.encodeUltraBatch(elems)
	}
	e.emitToken(tokArrayStart)
	e.appendRaw(appendVarint(nil, uint64(len(elems))))
	e.symbolCount++
	e.depth++
	for _, el := range elems {
		if err := e.encodeValue(el); err != nil {
			return err
		}
	}
	e.depth--
	e.emitToken(tokArrayEnd)
	return nil
}

// encodeField emits a field-dictionary reference or definition and sets
// curField to its slot, establishing the delta context for the value that
// follows.
func (e *Encoder) encodeField(name string) {
	slot, isNew, evicted := e.dicts.fields.getOrAdd(name)
	if evicted >= 0 {
		e.fields.clear(evicted)
	}
	if isNew {
		e.emitToken(tokNewField)
		e.appendRaw(appendVarint(nil, uint64(len(name))))
		e.appendRaw([]byte(name))
		e.Stats.DictMisses++
	} else {
		e.emitByte(fieldRefToken(slot))
		e.Stats.DictHits++
	}
	e.curField = slot
}

func (e *Encoder) encodeString(s string) {
	slot, isNew, _ := e.dicts.strings.getOrAdd(s)
	if isNew {
		e.emitToken(tokNewString)
		e.appendRaw(appendVarint(nil, uint64(len(s))))
		e.appendRaw([]byte(s))
		e.Stats.DictMisses++
	} else {
		e.emitByte(stringRefToken(slot))
		e.Stats.DictHits++
	}
}

func (e *Encoder) encodeMAC(addr [6]byte) {
	s := string(addr[:])
	slot, isNew, _ := e.dicts.macs.getOrAdd(s)
	if isNew {
		e.emitToken(tokNewMAC)
		e.appendRaw(addr[:])
		e.Stats.DictMisses++
	} else {
		e.emitByte(macRefToken(slot))
		e.Stats.DictHits++
	}
}

func (e *Encoder) encodeBinary(b []byte) {
	e.emitToken(tokBinary)
	e.appendRaw(appendVarint(nil, uint64(len(b))))
	e.appendRaw(b)
}

// encodeInt emits an absolute value on first use (or kind mismatch) for
// the active field, and a delta otherwise, choosing the tightest delta
// token. Outside any field (curField == -1) it always emits absolute.
func (e *Encoder) encodeInt(v int32) {
	if e.curField < 0 {
		e.emitAbsoluteInt(v)
		return
	}
	st := &e.fields[e.curField]
	if st.kind != numInt {
		e.emitAbsoluteInt(v)
		st.kind = numInt
		st.i = v
		return
	}
	delta := v - st.i
	e.emitIntDelta(delta)
	st.i = st.i + delta // reconstructed value, matches decoder exactly
}

func (e *Encoder) emitAbsoluteInt(v int32) {
	e.emitToken(tokInt)
	e.appendRaw(appendSignedVarint(nil, v))
}

func (e *Encoder) emitIntDelta(delta int32) {
	switch {
	case delta == 0:
		e.emitToken(tokDeltaZero)
	case delta == 1:
		e.emitToken(tokDeltaOne)
	case delta == -1:
		e.emitToken(tokDeltaNegOne)
	case delta >= deltaSmallMin && delta <= deltaSmallMax:
		e.emitByte(encodeDeltaSmall(delta))
	case delta >= deltaMediumMin && delta <= deltaMediumMax:
		e.emitToken(tokDeltaMedium)
		e.appendRaw([]byte{byte(delta + deltaMediumOffset)})
	default:
		e.emitToken(tokDeltaLarge)
		e.appendRaw(appendSignedVarint(nil, delta))
	}
}

// encodeFloat picks FLOAT16 for compact-range absolute values (as the
// Python reference's tier heuristic does) or FLOAT32 otherwise, and tracks
// delta state uniformly at 16.16 scale (DESIGN.md Open Questions 4-5).
func (e *Encoder) encodeFloat(v float64) {
	if e.curField < 0 {
		e.emitAbsoluteFloat(v)
		return
	}
	st := &e.fields[e.curField]
	if st.kind != numFixed {
		e.emitAbsoluteFloat(v)
		st.kind = numFixed
		st.f = quantizeAbsoluteFloat(v) // value the decoder reads back from the FLOAT16/FLOAT32 tier
		return
	}
	deltaScaled := int32roundClamp((v - st.f) * 65536.0)
	e.emitIntDelta(deltaScaled)
	st.f = st.f + float64(deltaScaled)/65536.0
}

func (e *Encoder) emitAbsoluteFloat(v float64) {
	if v >= -128 && v <= 127 {
		e.emitToken(tokFloat16)
		e.appendRaw(appendFixed16(nil, v))
	} else {
		e.emitToken(tokFloat32)
		e.appendRaw(appendFixed32(nil, v))
	}
}

func (e *Encoder) encodeDouble(v float64) {
	// DOUBLE values bypass the delta system entirely: there is no tiered
	// delta token for raw IEEE-754 doubles in the wire grammar.
	e.emitToken(tokDouble)
	e.appendRaw(appendDouble(nil, v))
}

func int32roundClamp(v float64) int32 {
	if v > float64(deltaLargeSafeMax) {
		return deltaLargeSafeMax
	}
	if v < float64(deltaLargeSafeMin) {
		return deltaLargeSafeMin
	}
	return int32(v + sign(v)*0.5)
}

const (
	deltaLargeSafeMax = 1<<31 - 1
	deltaLargeSafeMin = -1 << 31
)

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// Finish assembles the complete frame (header, body, CRC) and, if
// Options.Compress requested it and doing so is worthwhile, wraps it with
// the LZ77 post-transform. It is the single-frame entry point: call it
// once per Encoder, or call Reset first to start an unrelated stream.
func (e *Encoder) Finish() ([]byte, error) {
	return e.buildFrame(false)
}

// FlushFrame finalizes the bytes accumulated since the Encoder was created
// or last Reset or FlushFrame (Finish does not clear them) into one
// self-contained frame, then clears the body so
// the same Encoder can keep accumulating the next frame of a continuing
// stream. Unlike Reset, it leaves dictionaries and per-field delta state
// untouched, so the same dictionary entries keep paying off across every
// frame of a long-running telemetry link instead of just within one.
func (e *Encoder) FlushFrame() ([]byte, error) {
	return e.buildFrame(true)
}

// ResetDictionaries clears all three dictionaries and per-field delta
// state without discarding any bytes already buffered for the current
// frame, and marks the next frame Finish or FlushFrame produces with the
// DICT_RESET flag so a continuing Decoder does the same before reading
// past that point in the stream.
func (e *Encoder) ResetDictionaries() {
	e.dicts.reset()
	e.fields.reset()
	e.curField = -1
	e.dictReset = true
}

func (e *Encoder) buildFrame(keepGoing bool) ([]byte, error) {
	if e.depth != 0 {
		return nil, ErrUnbalancedContainer
	}
	flags := frameFlags(0)
	if e.dictReset {
		flags |= flagDictReset
	}
	frame := buildFrame(flags, e.symbolCount, e.body)
	e.Stats.BytesOut += int64(len(frame))

	if keepGoing {
		e.body = e.body[:0]
		e.symbolCount = 0
		e.dictReset = false
	}

	if !e.opts.Compress {
		return frame, nil
	}
	compressed := lz77CompressBlock(frame)
	if len(compressed) >= len(frame) {
		return frame, nil
	}
	return wrapLZ77(compressed), nil
}
