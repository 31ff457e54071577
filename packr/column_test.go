package packr

import "testing"

func TestIsUltraBatchCandidate(t *testing.T) {
	rows := []*Value{
		Obj(F("a", Int(1)), F("b", Str("x"))),
		Obj(F("a", Int(2)), F("b", Str("y"))),
		Obj(F("a", Int(3)), F("b", Str("z"))),
		Obj(F("a", Int(4)), F("b", Str("w"))),
	}
	if !isUltraBatchCandidate(rows) {
		t.Fatal("expected homogeneous 4-row object array to qualify")
	}

	tooFew := rows[:2]
	if isUltraBatchCandidate(tooFew) {
		t.Error("expected fewer than ultraBatchMinRows to be rejected")
	}

	mixed := append([]*Value{}, rows...)
	mixed[1] = Obj(F("a", Int(2))) // different field set
	if isUltraBatchCandidate(mixed) {
		t.Error("expected heterogeneous field sets to be rejected")
	}

	nonObjects := []*Value{Int(1), Int(2), Int(3), Int(4)}
	if isUltraBatchCandidate(nonObjects) {
		t.Error("expected non-object elements to be rejected")
	}
}

func TestConstantColumnDetection(t *testing.T) {
	values := []colValue{
		{present: true, v: Str("ok")},
		{present: true, v: Str("ok")},
		{present: true, v: Str("ok")},
	}
	v, ok := constantColumn(values)
	if !ok || v.s != "ok" {
		t.Fatalf("expected constant ok, got %v ok=%v", v, ok)
	}

	values[1] = colValue{present: true, v: Str("different")}
	if _, ok := constantColumn(values); ok {
		t.Error("expected non-constant column to be rejected")
	}
}

func TestBoyerMooreModeFindsTrueMajority(t *testing.T) {
	values := make([]colValue, 0, 20)
	for i := 0; i < 15; i++ {
		values = append(values, colValue{present: true, v: Int(7)})
	}
	for i := 0; i < 5; i++ {
		values = append(values, colValue{present: true, v: Int(99)})
	}
	mode, votes := boyerMooreMode(values)
	if mode.i != 7 || votes != 15 {
		t.Errorf("got mode=%v votes=%d, want 7/15", mode, votes)
	}
}

func TestRiceParamBitLength(t *testing.T) {
	tests := []struct {
		maxAbs int32
		want   int
	}{
		{0, 0},
		{1, 0},
		{3, 0},
		{4, 1},
		{15, 2},
		{1023, 7},
	}
	for _, tt := range tests {
		if got := riceParam(tt.maxAbs); got != tt.want {
			t.Errorf("riceParam(%d) = %d, want %d", tt.maxAbs, got, tt.want)
		}
	}
}
