package packr

import "fmt"

// decodeUltraBatch is the inverse of Encoder.encodeUltraBatch: it reads
// the row/column counts, then reconstructs each column as a slice of
// per-row Values and transposes back into row-major objects.
func (d *Decoder) decodeUltraBatch() (*Value, error) {
	rows, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	cols, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	names, columns, err := d.decodeColumnsForRows(int(rows), cols)
	if err != nil {
		return nil, err
	}
	return Arr(transposeColumns(names, columns, int(rows))...), nil
}

// decodeArrayStream is the inverse of Encoder.encodeArrayStream: one
// shared column count followed by a sequence of BATCH_PARTIAL chunks
// (each with its own row count but the same field set), accumulating into
// one flat row-major array until ARRAY_END closes it.
func (d *Decoder) decodeArrayStream() (*Value, error) {
	cols, err := d.readVarint()
	if err != nil {
		return nil, err
	}

	var out []*Value
	for {
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if token(b) == tokArrayEnd {
			return Arr(out...), nil
		}
		if token(b) != tokBatchPartial {
			return nil, fmt.Errorf("%w: expected batch partial or array end, got %#x", ErrBadToken, b)
		}
		rows, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		names, columns, err := d.decodeColumnsForRows(int(rows), cols)
		if err != nil {
			return nil, err
		}
		out = append(out, transposeColumns(names, columns, int(rows))...)
	}
}

// decodeColumnsForRows reads decoded columns across two passes, mirroring
// Encoder.encodeColumnsForRows: every field-dict token plus flags byte
// first, then every column's validity bitmap and strategy payload second.
func (d *Decoder) decodeColumnsForRows(rows int, cols uint64) ([]string, [][]*Value, error) {
	names := make([]string, cols)
	flagsList := make([]byte, cols)
	fieldSlots := make([]int, cols)
	columns := make([][]*Value, cols)
	d.Stats.trackScratch(int64(cols) * colValueScratchBytes)
	defer d.Stats.trackScratch(-int64(cols) * colValueScratchBytes)

	for c := uint64(0); c < cols; c++ {
		b, err := d.readByte()
		if err != nil {
			return nil, nil, err
		}
		name, err := d.decodeFieldToken(b)
		if err != nil {
			return nil, nil, err
		}
		names[c] = name
		fieldSlots[c] = d.curField

		flags, err := d.readByte()
		if err != nil {
			return nil, nil, err
		}
		flagsList[c] = flags
	}

	for c := uint64(0); c < cols; c++ {
		// decodeFieldToken above left curField on the last column visited in
		// the first pass; restore the slot this column's own field token set
		// so the scalar delta state it reads and updates is the right one.
		d.curField = fieldSlots[c]
		col, err := d.decodeColumn(flagsList[c], rows)
		if err != nil {
			return nil, nil, err
		}
		columns[c] = col
	}
	return names, columns, nil
}

// transposeColumns rebuilds row-major objects from decodeColumnsForRows'
// column-major output.
func transposeColumns(names []string, columns [][]*Value, rows int) []*Value {
	cols := len(names)
	out := make([]*Value, rows)
	for r := 0; r < rows; r++ {
		fields := make([]Field, cols)
		for c := 0; c < cols; c++ {
			fields[c] = F(names[c], columns[c][r])
		}
		out[r] = Obj(fields...)
	}
	return out
}

// decodeColumn reads one column's validity bitmap (if flagged) and
// strategy payload. flags was already read by decodeColumnsForRows' first
// pass. A CONSTANT column's payload is a single value; a NUMERIC or RLE
// column's payload optionally opens with one of the three dedicated
// strategy tokens (MFV_COLUMN, BITPACK_COL, RICE_COLUMN), peeked and
// consumed here, falling back to the plain scalar-delta-stream form when
// none of them is present.
func (d *Decoder) decodeColumn(flags byte, rows int) ([]*Value, error) {
	hasNulls := flags&colFlagHasNulls != 0
	var bitmap []byte
	if hasNulls {
		bm, err := readValidityBitmap(d, rows)
		if err != nil {
			return nil, err
		}
		bitmap = bm
	}

	if flags&colFlagConstant != 0 {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		return expandConstant(v, rows, bitmap), nil
	}

	if flags&colFlagNumeric == 0 && flags&colFlagRLE == 0 {
		return nil, fmt.Errorf("%w: column flags %#x set none of CONSTANT/NUMERIC/RLE", ErrBadToken, flags)
	}

	b, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch token(b) {
	case tokMFVColumn:
		return d.decodeMFVColumn()
	case tokBitpackCol:
		return d.decodeBitpackColumn()
	case tokRiceColumn:
		return d.decodeRiceColumn()
	}
	d.pos-- // not a dedicated strategy token; rewind for the plain value stream
	return d.decodeScalarDeltaColumn(rows, bitmap)
}

func expandConstant(v *Value, rows int, bitmap []byte) []*Value {
	out := make([]*Value, rows)
	for i := range out {
		if bitmap != nil && bitmap[i/8]&(1<<uint(i%8)) == 0 {
			out[i] = Null()
			continue
		}
		out[i] = v
	}
	return out
}

func readValidityBitmap(d *Decoder, rows int) ([]byte, error) {
	return d.readN((rows + 7) / 8)
}

func bitmapPresent(bitmap []byte, i int) bool {
	return bitmap[i/8]&(1<<uint(i%8)) != 0
}

// decodeMFVColumn reads the mode value, exception bitmap, and literal
// exceptions, filling every non-exception row with the mode.
func (d *Decoder) decodeMFVColumn() ([]*Value, error) {
	n, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	mode, err := d.decodeValue()
	if err != nil {
		return nil, err
	}
	exceptions, err := readValidityBitmap(d, int(n))
	if err != nil {
		return nil, err
	}
	out := make([]*Value, n)
	for i := uint64(0); i < n; i++ {
		if bitmapPresent(exceptions, int(i)) {
			v, err := d.decodeValue()
			if err != nil {
				return nil, err
			}
			out[i] = v
			continue
		}
		out[i] = mode
	}
	return out, nil
}

// decodeBitpackColumn reads the absolute row-0 value and count packed
// 4-bit signed deltas (two per byte), reconstructing the full column.
func (d *Decoder) decodeBitpackColumn() ([]*Value, error) {
	count, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	first, isFloat, err := d.decodeAbsoluteNumericBaseline()
	if err != nil {
		return nil, err
	}
	out := make([]*Value, count+1)
	out[0] = numericFromScaled(first, isFloat)

	nBytes := (int(count) + 1) / 2
	raw, err := d.readN(nBytes)
	if err != nil {
		return nil, err
	}
	cur := first
	idx := 1
	for i := 0; i < nBytes; i++ {
		d1 := int32((raw[i]>>4)&0x0F) - 8
		d2 := int32(raw[i]&0x0F) - 8
		cur += d1
		out[idx] = numericFromScaled(cur, isFloat)
		idx++
		if idx > int(count) {
			break
		}
		cur += d2
		out[idx] = numericFromScaled(cur, isFloat)
		idx++
	}
	return out, nil
}

// decodeRiceColumn reads the absolute row-0 value, the Rice parameter K,
// and a Golomb-Rice bitstream of zigzag deltas.
func (d *Decoder) decodeRiceColumn() ([]*Value, error) {
	count, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	first, isFloat, err := d.decodeAbsoluteNumericBaseline()
	if err != nil {
		return nil, err
	}
	kByte, err := d.readByte()
	if err != nil {
		return nil, err
	}
	k := uint(kByte)

	out := make([]*Value, count+1)
	out[0] = numericFromScaled(first, isFloat)
	br := newBitReader(d.body[d.pos:])
	cur := first
	for i := uint64(0); i < count; i++ {
		q, err := br.readUnary()
		if err != nil {
			return nil, err
		}
		var r uint32
		if k > 0 {
			r, err = br.readBits(k)
			if err != nil {
				return nil, err
			}
		}
		z := (q << k) | r
		delta := zigzagDecode(z)
		cur += delta
		out[i+1] = numericFromScaled(cur, isFloat)
	}
	d.pos += (br.pos) // advance by whole consumed bytes; final partial byte was padding
	if br.bit != 7 {
		d.pos++ // a partial final byte was consumed
	}
	return out, nil
}

// decodeAbsoluteNumericBaseline reads a bitpack/Rice column's row-0
// baseline, discriminating int vs float purely from which token is
// present (INT vs FLOAT16/FLOAT32), mirroring Encoder.emitNumericBaseline.
// The returned value is already in the int32 domain deltas are computed
// in: raw for int, scaled by 65536 for float.
func (d *Decoder) decodeAbsoluteNumericBaseline() (int32, bool, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, false, err
	}
	switch token(b) {
	case tokInt:
		v, err := d.readSignedVarint()
		return v, false, err
	case tokFloat16:
		raw, err := d.readN(2)
		if err != nil {
			return 0, false, err
		}
		v, err := readFixed16(raw, 0)
		if err != nil {
			return 0, false, err
		}
		return int32roundClamp(v * 65536.0), true, nil
	case tokFloat32:
		raw, err := d.readN(4)
		if err != nil {
			return 0, false, err
		}
		v, err := readFixed32(raw, 0)
		if err != nil {
			return 0, false, err
		}
		return int32roundClamp(v * 65536.0), true, nil
	default:
		return 0, false, fmt.Errorf("%w: expected numeric baseline, got %#x", ErrBadToken, b)
	}
}

// numericFromScaled is the inverse of numericColumnValues' per-element
// scaling: raw for an int column, divided back down by 65536 for a float
// column.
func numericFromScaled(v int32, isFloat bool) *Value {
	if isFloat {
		return Float(float64(v) / 65536.0)
	}
	return Int(int64(v))
}

// decodeScalarDeltaColumn mirrors Encoder.encodeScalarDeltaColumn: each
// row is an ordinary scalar value using the column field's regular delta
// state, except RLE_REPEAT tokens which expand to a run of the
// previously decoded value. bitmap is nil when the column has no nulls.
func (d *Decoder) decodeScalarDeltaColumn(rows int, bitmap []byte) ([]*Value, error) {
	out := make([]*Value, rows)
	i := 0
	for i < rows {
		if bitmap != nil && !bitmapPresent(bitmap, i) {
			out[i] = Null()
			i++
			continue
		}
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		out[i] = v
		i++

		if i < rows && !d.atEnd() {
			peek := d.body[d.pos]
			if token(peek) == tokRLERepeat {
				d.pos++
				n, err := d.readVarint()
				if err != nil {
					return nil, err
				}
				for j := uint64(0); j < n && i < rows; j++ {
					out[i] = v
					i++
				}
			}
		}
	}
	return out, nil
}
