package packr

// This file implements the ULTRA_BATCH columnar encoding: detecting a run
// of homogeneous objects worth batching, then picking the cheapest of five
// per-column strategies (constant, most-frequent-value, bitpack, Rice,
// scalar-delta-stream fallback) for each field across the whole batch.
//
// A multi-column layout is written in two passes, never interleaved: every
// column's field-dict token plus its flags byte first, then every column's
// validity bitmap (if any) plus strategy payload second. This is what lets
// a decoder read every column's shape before committing to any payload.

// column flag bits, one per ULTRA_BATCH column header byte. CONSTANT is
// mutually exclusive with NUMERIC/RLE: every non-constant column is either
// NUMERIC (int/float, payload picked from MFV/bitpack/Rice/delta-stream)
// or RLE (everything else, payload picked from MFV/plain value+repeat).
const (
	colFlagConstant = 1 << 0
	colFlagNumeric  = 1 << 1
	colFlagRLE      = 1 << 2
	colFlagHasNulls = 1 << 3
)

// isUltraBatchCandidate reports whether elems is a run of objects sharing
// the same field set, in the same order, long enough to be worth batching.
func isUltraBatchCandidate(elems []*Value) bool {
	if len(elems) < ultraBatchMinRows {
		return false
	}
	first := elems[0]
	if first == nil || first.kind != KindObject {
		return false
	}
	keys := fieldNames(first.obj)
	for _, el := range elems[1:] {
		if el == nil || el.kind != KindObject {
			return false
		}
		if !sameFieldOrder(keys, fieldNames(el.obj)) {
			return false
		}
	}
	return true
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func sameFieldOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// colValue is one row's leaf value for a single column, with nullability
// separated out so strategies only deal with present values.
type colValue struct {
	present bool
	v       *Value
}

// encodeUltraBatch emits the ULTRA_BATCH token, row/column counts, and one
// encoded column per field, selecting each column's cheapest strategy
// independently.
func (e *Encoder) encodeUltraBatch(rows []*Value) error {
	cols := len(rows[0].obj)
	e.emitToken(tokUltraBatch)
	e.appendRaw(appendVarint(nil, uint64(len(rows))))
	e.appendRaw(appendVarint(nil, uint64(cols)))
	e.symbolCount += 2
	e.encodeColumnsForRows(rows, cols)
	return nil
}

// encodeArrayStream emits ARRAY_STREAM, the shared column count, and a
// sequence of BATCH_PARTIAL chunks (each the row count for that chunk plus
// the same per-column strategy payloads ULTRA_BATCH uses), closing with
// ARRAY_END. It is how a very long homogeneous-object array is batched
// without holding a column's full row span in scratch memory at once.
func (e *Encoder) encodeArrayStream(rows []*Value) error {
	cols := len(rows[0].obj)
	e.emitToken(tokArrayStream)
	e.appendRaw(appendVarint(nil, uint64(cols)))
	e.symbolCount++

	for start := 0; start < len(rows); start += streamBatchChunkRows {
		end := start + streamBatchChunkRows
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		e.emitToken(tokBatchPartial)
		e.appendRaw(appendVarint(nil, uint64(len(chunk))))
		e.symbolCount++
		e.encodeColumnsForRows(chunk, cols)
	}

	e.emitToken(tokArrayEnd)
	return nil
}

// encodeColumnsForRows writes one field-dict token plus encoded column per
// field across rows, shared by both the single-shot ULTRA_BATCH layout and
// each ARRAY_STREAM chunk. It runs in two passes over the columns: every
// field name and flags byte first, then every column's validity bitmap and
// strategy payload, matching the reference column-header layout.
func (e *Encoder) encodeColumnsForRows(rows []*Value, cols int) {
	plans := make([]columnPlan, cols)
	for c := 0; c < cols; c++ {
		name := rows[0].obj[c].Name
		e.encodeField(name)

		values := make([]colValue, len(rows))
		e.Stats.trackScratch(int64(len(values)) * colValueScratchBytes)
		for r, row := range rows {
			f := row.obj[c]
			values[r] = colValue{present: f.Value != nil && f.Value.kind != KindNull, v: f.Value}
		}
		plans[c] = analyzeColumn(values)
		plans[c].fieldSlot = e.curField
		e.emitByte(plans[c].flags)
	}

	for c := 0; c < cols; c++ {
		// encodeField above left curField on the last column visited in the
		// first pass; restore the slot this column's own field token set so
		// the scalar delta state it reads and updates is the right one.
		e.curField = plans[c].fieldSlot
		e.encodeColumnPayload(plans[c])
		e.Stats.trackScratch(-int64(len(plans[c].values)) * colValueScratchBytes)
	}
}

// colValueScratchBytes estimates one colValue's footprint (a bool plus a
// value pointer) for Stats' scratch high-water mark. It is a sizing
// estimate for the metric, not a precise allocator accounting.
const colValueScratchBytes = 16

// columnPlan is one column's flags-byte decision, computed up front so the
// field+flags pass and the validity+payload pass can each see it without
// re-deriving constant-ness or numeric-ness from the raw values twice.
type columnPlan struct {
	values     []colValue
	flags      byte
	hasNulls   bool
	numeric    bool
	isConstant bool
	constVal   *Value
	fieldSlot  int // dictionary slot of this column's field, for restoring e.curField in the payload pass
}

// analyzeColumn computes a column's flags byte and the facts the payload
// pass needs, without writing anything.
func analyzeColumn(values []colValue) columnPlan {
	hasNulls := false
	for _, cv := range values {
		if !cv.present {
			hasNulls = true
			break
		}
	}
	numeric := isNumericColumn(values)
	constVal, isConstant := constantColumn(values)

	flags := byte(0)
	if hasNulls {
		flags |= colFlagHasNulls
	}
	switch {
	case isConstant:
		flags |= colFlagConstant
	case numeric:
		flags |= colFlagNumeric
	default:
		flags |= colFlagRLE
	}

	return columnPlan{
		values:     values,
		flags:      flags,
		hasNulls:   hasNulls,
		numeric:    numeric,
		isConstant: isConstant,
		constVal:   constVal,
	}
}

// encodeColumn is a single-column convenience wrapper over
// analyzeColumn/encodeColumnPayload: it writes one column's flags byte,
// optional validity bitmap, and strategy payload in full. Multi-column
// callers use the split form directly so every column's flags byte can be
// written before any column's payload, per encodeColumnsForRows' two-pass
// layout.
func (e *Encoder) encodeColumn(values []colValue) {
	p := analyzeColumn(values)
	e.emitByte(p.flags)
	e.encodeColumnPayload(p)
}

// encodeColumnPayload writes one column's optional validity bitmap and
// strategy payload, trying strategies in priority order and committing to
// the first one that applies. The flags byte itself is assumed already
// written by the caller.
func (e *Encoder) encodeColumnPayload(p columnPlan) {
	if p.hasNulls {
		e.emitValidityBitmap(p.values)
	}

	if p.isConstant {
		e.encodeValue(p.constVal)
		e.Stats.ConstantColumns++
		return
	}

	if p.numeric {
		if e.tryMFVColumn(p.values, p.hasNulls) {
			e.Stats.MFVColumns++
			return
		}
		if e.tryBitpackColumn(p.values, p.hasNulls) {
			e.Stats.BitpackColumns++
			return
		}
		if e.tryRiceColumn(p.values, p.hasNulls) {
			e.Stats.RiceColumns++
			return
		}
	} else if e.tryMFVColumn(p.values, p.hasNulls) {
		e.Stats.MFVColumns++
		return
	}

	e.encodeScalarDeltaColumn(p.values)
	e.Stats.RLEColumns++
}

func (e *Encoder) emitValidityBitmap(values []colValue) {
	bitmap := make([]byte, (len(values)+7)/8)
	for i, cv := range values {
		if cv.present {
			bitmap[i/8] |= 1 << uint(i%8)
		}
	}
	e.appendRaw(bitmap)
}

func constantColumn(values []colValue) (*Value, bool) {
	if !values[0].present {
		return nil, false
	}
	first := values[0].v
	for _, cv := range values[1:] {
		if !cv.present || !valuesEqual(first, cv.v) {
			return nil, false
		}
	}
	return first, true
}

func valuesEqual(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat, KindDouble:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindMAC:
		return a.mac == b.mac
	default:
		return false
	}
}

func isNumericColumn(values []colValue) bool {
	for _, cv := range values {
		if !cv.present {
			continue
		}
		if cv.v.kind != KindInt && cv.v.kind != KindFloat {
			return false
		}
	}
	return true
}

// numericColumnValues extracts a fully-present numeric column into the
// int32 domain the bitpack and Rice strategies both compute deltas in: raw
// values for an int column, or values scaled by 65536 (the same
// fixed-point scale the per-field float delta path uses) for a float
// column. Row 0 is quantized to whichever FLOAT16/FLOAT32 tier its
// absolute emission would pick, so the baseline this returns always
// matches what decodeAbsoluteNumericBaseline reads back. A column mixing
// int and float rows, or with any absent row, reports ok=false.
func numericColumnValues(values []colValue) (scaled []int32, isFloat bool, ok bool) {
	if !values[0].present {
		return nil, false, false
	}
	kind := values[0].v.kind
	if kind != KindInt && kind != KindFloat {
		return nil, false, false
	}
	isFloat = kind == KindFloat

	out := make([]int32, len(values))
	for i, cv := range values {
		if !cv.present || cv.v.kind != kind {
			return nil, false, false
		}
		if isFloat {
			v := cv.v.f
			if i == 0 {
				v = quantizeAbsoluteFloat(v)
			}
			out[i] = int32roundClamp(v * 65536.0)
		} else {
			out[i] = int32(cv.v.i)
		}
	}
	return out, isFloat, true
}

// quantizeAbsoluteFloat mirrors the rounding Encoder.emitAbsoluteFloat's
// FLOAT16/FLOAT32 tier applies, so a column's row-0 baseline can be
// delta-chained against the exact value the decoder reconstructs from it.
func quantizeAbsoluteFloat(v float64) float64 {
	if v >= -128 && v <= 127 {
		q, _ := readFixed16(appendFixed16(nil, v), 0)
		return q
	}
	q, _ := readFixed32(appendFixed32(nil, v), 0)
	return q
}

// emitNumericBaseline writes a bitpack/Rice column's row-0 baseline as
// either a plain INT or a tiered absolute float, letting the decoder tell
// which scale applies purely from the token it reads back.
func (e *Encoder) emitNumericBaseline(first *Value, isFloat bool) {
	if isFloat {
		e.emitAbsoluteFloat(first.f)
	} else {
		e.emitAbsoluteInt(int32(first.i))
	}
}

// tryMFVColumn applies the Boyer-Moore majority vote heuristic: if one
// value covers at least mfvMinShare of at least mfvMinVotes rows, encode
// it as the mode plus an exception bitmap and literal exceptions.
func (e *Encoder) tryMFVColumn(values []colValue, hasNulls bool) bool {
	n := len(values)
	if n < mfvMinVotes {
		return false
	}
	mode, votes := boyerMooreMode(values)
	if mode == nil {
		return false
	}
	if float64(votes)/float64(n) < mfvMinShare {
		return false
	}

	e.emitToken(tokMFVColumn)
	e.appendRaw(appendVarint(nil, uint64(n)))
	e.encodeValue(mode)

	exceptions := make([]byte, (n+7)/8)
	var literals []*Value
	for i, cv := range values {
		if cv.present && !valuesEqual(cv.v, mode) {
			exceptions[i/8] |= 1 << uint(i%8)
			literals = append(literals, cv.v)
		} else if !cv.present {
			exceptions[i/8] |= 1 << uint(i%8)
			literals = append(literals, Null())
		}
	}
	e.appendRaw(exceptions)
	for _, lit := range literals {
		e.encodeValue(lit)
	}
	return true
}

// boyerMooreMode runs the linear majority-vote algorithm over present
// values and reports the winning candidate and its true vote count.
func boyerMooreMode(values []colValue) (*Value, int) {
	var candidate *Value
	count := 0
	for _, cv := range values {
		if !cv.present {
			continue
		}
		if count == 0 {
			candidate = cv.v
			count = 1
		} else if valuesEqual(candidate, cv.v) {
			count++
		} else {
			count--
		}
	}
	if candidate == nil {
		return nil, 0
	}
	actual := 0
	for _, cv := range values {
		if cv.present && valuesEqual(cv.v, candidate) {
			actual++
		}
	}
	return candidate, actual
}

// tryBitpackColumn applies when every row-to-row delta after row 0 fits in
// 4 bits signed ([-8,7]); it writes row 0 as an absolute baseline and packs
// two deltas per byte. It is skipped (falling through to Rice/fallback) when
// the RLE-vs-bitpack cost heuristic favors a run-length encoding instead.
func (e *Encoder) tryBitpackColumn(values []colValue, hasNulls bool) bool {
	if hasNulls {
		return false // validity bitmap plus bitpack nibble stream do not compose cleanly; fall through
	}
	ints, isFloat, ok := numericColumnValues(values)
	if !ok {
		return false
	}
	deltas := make([]int32, len(ints)-1)
	e.Stats.trackScratch(int64(len(deltas)) * 4)
	defer e.Stats.trackScratch(-int64(len(deltas)) * 4)
	for i := 1; i < len(ints); i++ {
		deltas[i-1] = ints[i] - ints[i-1]
	}
	for _, d := range deltas {
		if d < deltaSmallMin || d > deltaSmallMax {
			return false
		}
	}

	zeroRuns := countZeroRuns(deltas)
	if float64(zeroRuns)/float64(len(deltas)+1) > bitpackRLEFallback {
		return false
	}

	e.emitToken(tokBitpackCol)
	e.appendRaw(appendVarint(nil, uint64(len(deltas))))
	e.emitNumericBaseline(values[0].v, isFloat)
	e.packDeltaNibbles(deltas)
	return true
}

func countZeroRuns(deltas []int32) int {
	n := 0
	for _, d := range deltas {
		if d == 0 {
			n++
		}
	}
	return n
}

func (e *Encoder) packDeltaNibbles(deltas []int32) {
	for i := 0; i < len(deltas); i += 2 {
		d1 := deltas[i] + 8
		d2 := int32(8)
		if i+1 < len(deltas) {
			d2 = deltas[i+1] + 8
		}
		e.appendRaw([]byte{byte((d1 << 4) | (d2 & 0x0F))})
	}
}

// tryRiceColumn applies Rice coding (Golomb coding with power-of-two M) to
// row-to-row deltas when they're small enough to bound the unary quotient
// length, committing only if the resulting byte length beats the naive
// scalar-delta-stream fallback enough to be worth the fixed K byte.
func (e *Encoder) tryRiceColumn(values []colValue, hasNulls bool) bool {
	if hasNulls {
		return false
	}
	ints, isFloat, ok := numericColumnValues(values)
	if !ok || len(ints) < riceMinItems {
		return false
	}
	deltas := make([]int32, len(ints)-1)
	e.Stats.trackScratch(int64(len(deltas)) * 4)
	defer e.Stats.trackScratch(-int64(len(deltas)) * 4)
	maxAbs := int32(0)
	for i := 1; i < len(ints); i++ {
		d := ints[i] - ints[i-1]
		deltas[i-1] = d
		a := d
		if a < 0 {
			a = -a
		}
		if a > maxAbs {
			maxAbs = a
		}
	}
	if maxAbs >= riceMaxAbsDelta {
		return false
	}
	k := riceParam(maxAbs)

	bw := &bitWriter{}
	for _, d := range deltas {
		z := zigzagEncode(d)
		q := z >> uint(k)
		r := z & (1<<uint(k) - 1)
		bw.writeUnary(q)
		if k > 0 {
			bw.writeBits(r, uint(k))
		}
	}
	payload := bw.flush()
	e.Stats.trackScratch(int64(len(payload)))
	defer e.Stats.trackScratch(-int64(len(payload)))

	if len(payload) >= (len(deltas)*2 + 4) {
		return false // not worth the fixed K byte and token over the fallback
	}

	e.emitToken(tokRiceColumn)
	e.appendRaw(appendVarint(nil, uint64(len(deltas))))
	e.emitNumericBaseline(values[0].v, isFloat)
	e.emitByte(byte(k))
	e.appendRaw(payload)
	return true
}

// riceParam picks K = clamp(bitlen(maxAbs) - 2, 0, 7), matching the
// fixed small-delta working set this codec targets.
func riceParam(maxAbs int32) int {
	bl := bitLen32(uint32(maxAbs))
	k := bl - 2
	if k < 0 {
		k = 0
	}
	if k > 7 {
		k = 7
	}
	return k
}

func bitLen32(v uint32) int {
	n := 0
	for v != 0 {
		n++
		v >>= 1
	}
	return n
}

// encodeScalarDeltaColumn is the fallback strategy: it walks the column
// with the ordinary per-row scalar encoder (absolute/delta tiers, numeric
// state keyed on the column's field slot as usual), collapsing runs of
// more than 3 consecutive equal values into the value once plus a single
// RLE_REPEAT token carrying the remaining count. The
// column's flags byte and validity bitmap are written by the caller.
func (e *Encoder) encodeScalarDeltaColumn(values []colValue) {
	i := 0
	for i < len(values) {
		cv := values[i]
		if !cv.present {
			i++
			continue
		}
		runLen := 1
		for j := i + 1; j < len(values); j++ {
			if !values[j].present || !valuesEqual(values[j].v, cv.v) {
				break
			}
			runLen++
		}
		if runLen > 3 {
			// Emitting the repeated value runLen-1 more times would each be a
			// zero delta under the ordinary scalar encoder; collapse them.
			e.encodeValue(cv.v)
			e.emitToken(tokRLERepeat)
			e.appendRaw(appendVarint(nil, uint64(runLen-1)))
			i += runLen
			continue
		}
		e.encodeValue(cv.v)
		i++
	}
}
