package packr

import "fmt"

// Decoder reconstructs Values from a framed PACKR byte stream. It mirrors
// Encoder's internal state (dictionaries, per-field delta state) so the
// two stay in lockstep: every token the encoder can produce, the decoder
// dispatches on here.
type Decoder struct {
	dicts  dictionarySet
	fields fieldStates

	body     []byte
	pos      int
	curField int

	Stats Stats
}

// NewDecoder parses frame (with any LZ77 wrap already removed by the
// caller via Unwrap, or a plain unwrapped frame) and returns a Decoder
// ready to read its values back out in order.
func NewDecoder(frame []byte) (*Decoder, error) {
	pf, err := parseFrame(frame)
	if err != nil {
		return nil, err
	}
	d := &Decoder{body: pf.Body, curField: -1}
	d.Stats.BytesIn = int64(len(frame))
	return d, nil
}

// Unwrap strips the LZ77 transform marker and decompresses, if present,
// returning the plain frame bytes ready for NewDecoder. Frames without the
// marker pass through unchanged.
func Unwrap(data []byte) ([]byte, error) {
	if !isLZ77Wrapped(data) {
		return data, nil
	}
	return lz77DecompressBlock(data[2:])
}

// NewDecoderSession returns a Decoder with empty dictionaries and
// per-field state, ready to read a continuing sequence of frames via
// NextFrame while carrying dictionary state across frame boundaries.
// NewDecoder remains the entry point for a single standalone frame.
func NewDecoderSession() *Decoder {
	return &Decoder{curField: -1}
}

// NextFrame parses frame and makes it the Decoder's current body. By
// default dictionaries and per-field state carry over from whatever was
// decoded before, matching the Encoder-side FlushFrame/ResetDictionaries
// split; if frame's FLAGS byte has DICT_RESET set, they're cleared first.
func (d *Decoder) NextFrame(frame []byte) error {
	pf, err := parseFrame(frame)
	if err != nil {
		return err
	}
	if pf.Flags&flagDictReset != 0 {
		d.dicts.reset()
		d.fields.reset()
		d.curField = -1
	}
	d.body = pf.Body
	d.pos = 0
	d.Stats.BytesIn += int64(len(frame))
	return nil
}

func (d *Decoder) atEnd() bool { return d.pos >= len(d.body) }

func (d *Decoder) readByte() (byte, error) {
	if d.pos >= len(d.body) {
		return 0, fmt.Errorf("%w: unexpected end of body", ErrTruncated)
	}
	b := d.body[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readVarint() (uint64, error) {
	v, n, err := readVarint(d.body, d.pos)
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *Decoder) readSignedVarint() (int32, error) {
	v, n, err := readSignedVarint(d.body, d.pos)
	if err != nil {
		return 0, err
	}
	d.pos += n
	return v, nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if d.pos+n > len(d.body) {
		return nil, fmt.Errorf("%w: need %d bytes", ErrTruncated, n)
	}
	b := d.body[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) readString() (string, error) {
	n, err := d.readVarint()
	if err != nil {
		return "", err
	}
	b, err := d.readN(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode reads the next top-level value from the stream.
func (d *Decoder) Decode() (*Value, error) {
	return d.decodeValue()
}

// More reports whether the body has any bytes left to decode.
func (d *Decoder) More() bool { return !d.atEnd() }

func (d *Decoder) decodeValue() (*Value, error) {
	b, err := d.readByte()
	if err != nil {
		return nil, err
	}
	return d.decodeFromToken(b)
}

func (d *Decoder) decodeFromToken(b byte) (*Value, error) {
	switch {
	case isFieldRef(b):
		return nil, fmt.Errorf("%w: field ref %#x outside object context", ErrBadToken, b)
	case isStringRef(b):
		s, ok := d.dicts.strings.valueAt(dictSlot(b))
		if !ok {
			return nil, ErrDictOverflow
		}
		d.Stats.DictHits++
		return Str(s), nil
	case isMACRef(b):
		s, ok := d.dicts.macs.valueAt(dictSlot(b))
		if !ok {
			return nil, ErrDictOverflow
		}
		d.Stats.DictHits++
		return MAC(macBytes(s)), nil
	case isDeltaSmall(b):
		return d.decodeDeltaToken(int64(decodeDeltaSmall(b)))
	}

	switch token(b) {
	case tokInt:
		v, err := d.readSignedVarint()
		if err != nil {
			return nil, err
		}
		d.setFieldInt(v)
		return Int(int64(v)), nil
	case tokFloat16:
		raw, err := d.readN(2)
		if err != nil {
			return nil, err
		}
		v, err := readFixed16(raw, 0)
		if err != nil {
			return nil, err
		}
		d.setFieldFloat(v)
		return Float(v), nil
	case tokFloat32:
		raw, err := d.readN(4)
		if err != nil {
			return nil, err
		}
		v, err := readFixed32(raw, 0)
		if err != nil {
			return nil, err
		}
		d.setFieldFloat(v)
		return Float(v), nil
	case tokDeltaLarge:
		delta, err := d.readSignedVarint()
		if err != nil {
			return nil, err
		}
		return d.decodeDeltaToken(int64(delta))
	case tokDeltaMedium:
		raw, err := d.readByte()
		if err != nil {
			return nil, err
		}
		delta := int32(raw) - deltaMediumOffset
		return d.decodeDeltaToken(int64(delta))
	case tokDeltaZero:
		return d.decodeDeltaToken(0)
	case tokDeltaOne:
		return d.decodeDeltaToken(1)
	case tokDeltaNegOne:
		return d.decodeDeltaToken(-1)
	case tokNewString:
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		d.dicts.strings.getOrAdd(s)
		d.Stats.DictMisses++
		return Str(s), nil
	case tokNewField:
		return nil, fmt.Errorf("%w: new-field token outside object context", ErrBadToken)
	case tokNewMAC:
		raw, err := d.readN(6)
		if err != nil {
			return nil, err
		}
		d.dicts.macs.getOrAdd(string(raw))
		d.Stats.DictMisses++
		var addr [6]byte
		copy(addr[:], raw)
		return MAC(addr), nil
	case tokBoolTrue:
		return Bool(true), nil
	case tokBoolFalse:
		return Bool(false), nil
	case tokNull:
		return Null(), nil
	case tokArrayStart:
		return d.decodeArray()
	case tokObjectStart:
		return d.decodeObject()
	case tokDouble:
		raw, err := d.readN(8)
		if err != nil {
			return nil, err
		}
		v, err := readDouble(raw, 0)
		if err != nil {
			return nil, err
		}
		return Double(v), nil
	case tokBinary:
		n, err := d.readVarint()
		if err != nil {
			return nil, err
		}
		raw, err := d.readN(int(n))
		if err != nil {
			return nil, err
		}
		return Bin(append([]byte(nil), raw...)), nil
	case tokUltraBatch:
		return d.decodeUltraBatch()
	case tokArrayStream:
		return d.decodeArrayStream()
	default:
		return nil, fmt.Errorf("%w: %#x", ErrBadToken, b)
	}
}

func macBytes(s string) [6]byte {
	var addr [6]byte
	copy(addr[:], s)
	return addr
}

func (d *Decoder) setFieldInt(v int32) {
	if d.curField < 0 {
		return
	}
	st := &d.fields[d.curField]
	st.kind = numInt
	st.i = v
}

func (d *Decoder) setFieldFloat(v float64) {
	if d.curField < 0 {
		return
	}
	st := &d.fields[d.curField]
	st.kind = numFixed
	st.f = v
}

// decodeDeltaToken reconstructs a value from a delta amount against the
// active field's last numeric value, resolved through d.curField's state.
func (d *Decoder) decodeDeltaToken(delta int64) (*Value, error) {
	if d.curField < 0 {
		return nil, ErrDeltaWithoutBase
	}
	st := &d.fields[d.curField]
	switch st.kind {
	case numInt:
		st.i = st.i + int32(delta)
		return Int(int64(st.i)), nil
	case numFixed:
		st.f = st.f + float64(delta)/65536.0
		return Float(st.f), nil
	default:
		return nil, ErrDeltaWithoutBase
	}
}

func (d *Decoder) decodeObject() (*Value, error) {
	var fields []Field
	for {
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		if token(b) == tokObjectEnd {
			return Obj(fields...), nil
		}
		name, err := d.decodeFieldToken(b)
		if err != nil {
			return nil, err
		}
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		fields = append(fields, F(name, v))
	}
}

// decodeFieldToken handles the two forms a field token can take (dict
// reference or new-field definition) and sets curField for the value that
// follows, mirroring Encoder.encodeField.
func (d *Decoder) decodeFieldToken(b byte) (string, error) {
	if isFieldRef(b) {
		name, ok := d.dicts.fields.valueAt(dictSlot(b))
		if !ok {
			return "", ErrDictOverflow
		}
		d.curField = dictSlot(b)
		d.Stats.DictHits++
		return name, nil
	}
	if token(b) == tokNewField {
		name, err := d.readString()
		if err != nil {
			return "", err
		}
		slot, _, evicted := d.dicts.fields.getOrAdd(name)
		if evicted >= 0 {
			d.fields.clear(evicted)
		}
		d.curField = slot
		d.Stats.DictMisses++
		return name, nil
	}
	return "", fmt.Errorf("%w: expected field token, got %#x", ErrBadToken, b)
}

func (d *Decoder) decodeArray() (*Value, error) {
	count, err := d.readVarint()
	if err != nil {
		return nil, err
	}
	elems := make([]*Value, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	b, err := d.readByte()
	if err != nil {
		return nil, err
	}
	if token(b) != tokArrayEnd {
		return nil, fmt.Errorf("%w: expected array end, got %#x", ErrBadToken, b)
	}
	return Arr(elems...), nil
}
