package packr

// Stats reports instance-scoped counters an encoder or decoder accumulates
// over its lifetime. This is the Go-idiomatic stand-in for the reference
// implementation's global allocation-tracking hooks (packr_get_total_alloc/
// packr_get_peak_alloc): since Go doesn't intercept malloc, the counters
// live on the instance that actually owns the scratch buffers instead of a
// process-wide hook.
type Stats struct {
	BytesIn  int64
	BytesOut int64

	DictHits   int64
	DictMisses int64

	ConstantColumns int64
	MFVColumns      int64
	BitpackColumns  int64
	RiceColumns     int64
	RLEColumns      int64

	ScratchBytes     int64
	PeakScratchBytes int64
}

func (s *Stats) trackScratch(delta int64) {
	s.ScratchBytes += delta
	if s.ScratchBytes > s.PeakScratchBytes {
		s.PeakScratchBytes = s.ScratchBytes
	}
}
