package packr

import "testing"

// TestArrayStreamRoundTrip exercises the ARRAY_STREAM/BATCH_PARTIAL path:
// enough homogeneous rows to cross streamBatchMinRows, split across
// multiple streamBatchChunkRows-sized BATCH_PARTIAL frames.
func TestArrayStreamRoundTrip(t *testing.T) {
	const n = streamBatchMinRows + streamBatchChunkRows/2 // forces a short final chunk
	rows := make([]*Value, n)
	for i := range rows {
		rows[i] = Obj(
			F("seq", Int(int64(i))),
			F("status", Str("ok")),
			F("reading", Float(20.0+float64(i%5)*0.125)),
		)
	}
	in := Arr(rows...)

	enc := NewEncoder(DefaultOptions())
	if err := enc.Encode(in); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if token(enc.body[0]) != tokArrayStream {
		t.Fatalf("expected body to open with ARRAY_STREAM, got %#x", enc.body[0])
	}
	frame, err := enc.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	out := decodeOne(t, frame)
	if out.Kind() != KindArray || out.Len() != n {
		t.Fatalf("got kind %s len %d, want array len %d", out.Kind(), out.Len(), n)
	}
	for i := 0; i < n; i++ {
		row := out.At(i)
		if row.Get("seq").i != int64(i) {
			t.Fatalf("row %d seq = %v", i, row.Get("seq"))
		}
		if s, _ := row.Get("status").AsString(); s != "ok" {
			t.Fatalf("row %d status = %q", i, s)
		}
		want := 20.0 + float64(i%5)*0.125
		if got := row.Get("reading").f; got != want {
			t.Fatalf("row %d reading = %v, want %v", i, got, want)
		}
	}
}

// TestArrayStreamBelowThresholdStaysUltraBatch confirms the encoder only
// switches to ARRAY_STREAM once the row count reaches streamBatchMinRows,
// otherwise a homogeneous run still collapses into a single ULTRA_BATCH.
func TestArrayStreamBelowThresholdStaysUltraBatch(t *testing.T) {
	rows := make([]*Value, streamBatchMinRows-1)
	for i := range rows {
		rows[i] = Obj(F("id", Int(int64(i))))
	}
	enc := NewEncoder(DefaultOptions())
	if err := enc.Encode(Arr(rows...)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if token(enc.body[0]) != tokUltraBatch {
		t.Fatalf("expected ULTRA_BATCH below threshold, got %#x", enc.body[0])
	}
}

// scaledColumn builds a fully-present float colValue slice from a baseline
// and a run of 1/65536-scale integer deltas, so the expected output can be
// computed in the same integer domain the encoder and decoder both work in
// and compared without floating-point drift.
func scaledColumn(baseline int32, deltas []int32) ([]colValue, []int32) {
	scaled := make([]int32, len(deltas)+1)
	scaled[0] = baseline
	for i, d := range deltas {
		scaled[i+1] = scaled[i] + d
	}
	values := make([]colValue, len(scaled))
	for i, s := range scaled {
		values[i] = colValue{present: true, v: Float(float64(s) / 65536.0)}
	}
	return values, scaled
}

// TestBitpackColumnFloatRoundTrip exercises tryBitpackColumn's fixed-point
// path directly: a baseline plus a run of deltas within the 4-bit signed
// nibble range, encoded and decoded without going through encodeColumn's
// strategy selection.
func TestBitpackColumnFloatRoundTrip(t *testing.T) {
	deltas := make([]int32, 15)
	for i := range deltas {
		deltas[i] = 5
	}
	values, scaled := scaledColumn(20*65536, deltas)

	e := NewEncoder(DefaultOptions())
	if !e.tryBitpackColumn(values, false) {
		t.Fatal("expected tryBitpackColumn to accept small uniform float deltas")
	}
	if token(e.body[0]) != tokBitpackCol {
		t.Fatalf("expected BITPACK_COL token, got %#x", e.body[0])
	}

	d := &Decoder{body: e.body[1:], curField: -1}
	out, err := d.decodeBitpackColumn()
	if err != nil {
		t.Fatalf("decodeBitpackColumn: %v", err)
	}
	if len(out) != len(scaled) {
		t.Fatalf("got %d values, want %d", len(out), len(scaled))
	}
	for i, s := range scaled {
		want := float64(s) / 65536.0
		if out[i].f != want {
			t.Errorf("row %d = %v, want %v", i, out[i].f, want)
		}
	}
}

// TestRiceColumnFloatRoundTrip exercises tryRiceColumn's fixed-point path
// directly: enough rows to clear riceMinItems, with deltas varied and wide
// enough to fall outside the bitpack nibble range but still under
// riceMaxAbsDelta.
func TestRiceColumnFloatRoundTrip(t *testing.T) {
	deltas := []int32{16, -229, 393, -8, 180, -327, 32, -65, 278, -131, 0, 98}
	values, scaled := scaledColumn(10*65536, deltas)

	e := NewEncoder(DefaultOptions())
	if !e.tryRiceColumn(values, false) {
		t.Fatal("expected tryRiceColumn to accept these deltas")
	}
	if token(e.body[0]) != tokRiceColumn {
		t.Fatalf("expected RICE_COLUMN token, got %#x", e.body[0])
	}

	d := &Decoder{body: e.body[1:], curField: -1}
	out, err := d.decodeRiceColumn()
	if err != nil {
		t.Fatalf("decodeRiceColumn: %v", err)
	}
	if len(out) != len(scaled) {
		t.Fatalf("got %d values, want %d", len(out), len(scaled))
	}
	for i, s := range scaled {
		want := float64(s) / 65536.0
		if out[i].f != want {
			t.Errorf("row %d = %v, want %v", i, out[i].f, want)
		}
	}
}

// TestNumericColumnValuesRejectsMixedKinds confirms a column mixing int and
// float rows falls through to the scalar-delta fallback rather than being
// misread as one or the other by the bitpack/Rice strategies.
func TestNumericColumnValuesRejectsMixedKinds(t *testing.T) {
	values := []colValue{
		{present: true, v: Int(1)},
		{present: true, v: Float(2.5)},
	}
	if _, _, ok := numericColumnValues(values); ok {
		t.Error("expected mixed int/float column to be rejected")
	}
}
