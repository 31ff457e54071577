package packr

import "fmt"

// Streaming-mode LZ77: unlike the block transform, this variant is meant
// to run incrementally over a live telemetry stream with a small fixed
// 4KB window rather than buffering a whole frame. The reference transform
// declares this mode but never ships a body for it; this implementation
// is built directly from the window/slide/flush behavior described for
// it, reusing the same token grammar (control byte, extension chains,
// 2-byte offset, offset-0 literal flush) as the block transform.

const (
	lz77StreamWindow = 4096
	lz77StreamMaxBuf = lz77StreamWindow * 2
)

// StreamCompressor holds the sliding window and hash chains for one
// streaming LZ77 session. It is not safe for concurrent use.
type StreamCompressor struct {
	buf  []byte
	prev []int32
	head []int32

	pos     int // next unprocessed byte in buf
	litStart int // start of the pending, not-yet-tokenized literal run
}

// NewStreamCompressor returns a streaming LZ77 compressor with an empty
// window.
func NewStreamCompressor() *StreamCompressor {
	s := &StreamCompressor{head: make([]int32, lz77HashMask+1)}
	for i := range s.head {
		s.head[i] = -1
	}
	return s
}

func (s *StreamCompressor) insert(pos int) {
	if pos+4 > len(s.buf) {
		return
	}
	h := lz77Hash(s.buf[pos:])
	s.prev[pos] = s.head[h]
	s.head[h] = int32(pos)
}

func (s *StreamCompressor) findMatch(pos int) (bestLen, bestOffset int) {
	n := len(s.buf)
	if pos+4 > n {
		return 0, 0
	}
	limit := n - pos
	if limit > lz77MaxMatch {
		limit = lz77MaxMatch
	}
	h := lz77Hash(s.buf[pos:])
	cand := s.head[h]
	hops := 0
	for cand >= 0 && hops < lz77MaxChain {
		c := int(cand)
		if pos-c > lz77StreamWindow {
			break
		}
		length := lz77MatchLength(s.buf, c, pos, limit)
		if length > bestLen {
			bestLen = length
			bestOffset = pos - c
			if bestLen >= limit {
				break
			}
		}
		cand = s.prev[c]
		hops++
	}
	return bestLen, bestOffset
}

// Write feeds chunk into the compressor and returns whatever complete
// literal-run/match tokens it could produce. Trailing bytes that have not
// yet matured into a token (no match found yet, and more input might
// still extend a match) are held back until the next Write or Flush.
func (s *StreamCompressor) Write(chunk []byte) []byte {
	s.buf = append(s.buf, chunk...)
	s.prev = append(s.prev, make([]int32, len(chunk))...)

	var out []byte
	n := len(s.buf)
	for s.pos < n {
		minMatch := lz77MinMatchNoLits
		if s.pos > s.litStart {
			minMatch = lz77MinMatchLits
		}
		bestLen, bestOffset := s.findMatch(s.pos)
		if bestLen >= minMatch {
			out = lz77EmitToken(out, s.buf[s.litStart:s.pos], bestLen, bestOffset)
			end := s.pos + bestLen
			for p := s.pos; p < end; p++ {
				s.insert(p)
			}
			s.pos = end
			s.litStart = s.pos
			continue
		}
		s.insert(s.pos)
		s.pos++
	}
	out = append(out, s.slideIfFull()...)
	return out
}

// Flush emits any pending literal bytes terminated by the offset-0
// sentinel, ending the logical stream. Call it once, at the end.
func (s *StreamCompressor) Flush() []byte {
	out := lz77EmitToken(nil, s.buf[s.litStart:s.pos], 0, 0)
	s.litStart = s.pos
	return out
}

// slideIfFull halves the retained window once the buffer grows past
// twice the window size, discarding the oldest bytes and rewriting every
// hash-chain position (decrementing by the dropped count, or -1 if it
// now falls before the retained window). A literal run still open at
// litStart is force-flushed as a literals-only token first whenever it
// would otherwise block the slide, so a long incompressible run can't
// grow s.buf without bound.
func (s *StreamCompressor) slideIfFull() []byte {
	if len(s.buf) <= lz77StreamMaxBuf {
		return nil
	}
	drop := len(s.buf) - lz77StreamWindow

	var forced []byte
	if drop > s.litStart {
		forced = lz77EmitToken(nil, s.buf[s.litStart:s.pos], 0, 0)
		s.litStart = s.pos
	}
	if drop > s.pos {
		drop = s.pos
	}
	if drop <= 0 {
		return forced
	}

	s.buf = append([]byte(nil), s.buf[drop:]...)
	newPrev := make([]int32, len(s.buf))
	copy(newPrev, s.prev[drop:])
	s.prev = newPrev

	shift := func(v int32) int32 {
		if v < 0 {
			return -1
		}
		v -= int32(drop)
		if v < 0 {
			return -1
		}
		return v
	}
	for i := range s.head {
		s.head[i] = shift(s.head[i])
	}
	for i := range s.prev {
		s.prev[i] = shift(s.prev[i])
	}
	s.litStart -= drop
	s.pos -= drop
	return forced
}

// lz77DecompressStream decodes a complete concatenated streaming token
// sequence (every StreamCompressor.Write output followed by one Flush
// output). Unlike the block form there is no declared original length;
// an offset of 0 marks a literals-only token with no match to copy
// (either a mid-stream forced flush ahead of a window slide, or the
// final Flush), so decoding simply runs until the byte stream itself is
// exhausted.
func lz77DecompressStream(tokens []byte) ([]byte, error) {
	var out []byte
	pos := 0

	readByteAt := func() (byte, error) {
		if pos >= len(tokens) {
			return 0, fmt.Errorf("%w: lz77 stream tokens", ErrTruncated)
		}
		b := tokens[pos]
		pos++
		return b, nil
	}
	readExt := func(nib int) (int, error) {
		if nib < 15 {
			return nib, nil
		}
		val := 15
		for {
			b, err := readByteAt()
			if err != nil {
				return 0, err
			}
			val += int(b)
			if b != 255 {
				break
			}
		}
		return val, nil
	}

	for pos < len(tokens) {
		ctrl, err := readByteAt()
		if err != nil {
			return nil, err
		}
		litLen, err := readExt(int(ctrl >> 4))
		if err != nil {
			return nil, err
		}
		if pos+litLen > len(tokens) {
			return nil, fmt.Errorf("%w: lz77 stream literal run", ErrTruncated)
		}
		out = append(out, tokens[pos:pos+litLen]...)
		pos += litLen

		matchLenMinus3, err := readExt(int(ctrl & 0x0F))
		if err != nil {
			return nil, err
		}
		if pos+2 > len(tokens) {
			return nil, fmt.Errorf("%w: lz77 stream offset", ErrTruncated)
		}
		offset := int(tokens[pos]) | int(tokens[pos+1])<<8
		pos += 2
		if offset == 0 {
			continue // literals-only token: no match to copy
		}
		if offset > len(out) {
			return nil, ErrLZ77BadOffset
		}
		matchLen := matchLenMinus3 + 3
		start := len(out) - offset
		for k := 0; k < matchLen; k++ {
			out = append(out, out[start+k])
		}
	}
	return out, nil
}
