package packr

import (
	"encoding/binary"
	"fmt"
)

// Block-mode LZ77 post-transform: a whole-frame pass applied after
// framing, selected by Options.Compress. It is not a general byte
// compressor (see the module's Non-goals); it exists to squeeze repeated
// dictionary-miss runs and structural token patterns out of a single
// finished frame.

const (
	lz77FormatStored     = 0x00
	lz77FormatCompressed = 0x02

	lz77WindowSize     = 8192
	lz77HashMask       = 0x0FFF // 4096 chain heads
	lz77MaxChain       = 32
	lz77MaxMatch       = 258
	lz77MinMatchNoLits = 4
	lz77MinMatchLits   = 3
	lz77HashMultiplier = 0x1e35a7bd
)

// lz77CompressBlock runs the block-mode transform over data, returning a
// self-framed block (format byte, original length, payload). It falls
// back to a stored block whenever the compressed form would not actually
// be smaller.
func lz77CompressBlock(data []byte) []byte {
	payload := lz77EncodeTokens(data)
	compressed := lz77WrapBlock(lz77FormatCompressed, data, payload)
	if len(compressed) >= len(data)+5 {
		return lz77WrapBlock(lz77FormatStored, data, data)
	}
	return compressed
}

func lz77WrapBlock(format byte, orig []byte, payload []byte) []byte {
	out := make([]byte, 0, 5+len(payload))
	out = append(out, format)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(orig)))
	out = append(out, lenBuf[:]...)
	return append(out, payload...)
}

// lz77DecompressBlock is the inverse of lz77CompressBlock.
func lz77DecompressBlock(data []byte) ([]byte, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("%w: lz77 block header", ErrTruncated)
	}
	format := data[0]
	origLen := int(binary.LittleEndian.Uint32(data[1:5]))
	payload := data[5:]
	switch format {
	case lz77FormatStored:
		if len(payload) < origLen {
			return nil, fmt.Errorf("%w: stored lz77 block", ErrTruncated)
		}
		return append([]byte(nil), payload[:origLen]...), nil
	case lz77FormatCompressed:
		return lz77DecodeTokens(payload, origLen)
	default:
		return nil, fmt.Errorf("%w: lz77 format byte %#x", ErrBadToken, format)
	}
}

// lz77EncodeTokens greedily matches against a chained hash table over the
// whole buffer (bounded to an 8192-byte window, 32 hops per position), and
// emits literal-run/match token pairs terminated by a literal-only flush
// (offset 0).
//
// The hash table is backfilled at every position inside an accepted
// match, not just its start, matching the reference transform's
// update_hash behavior rather than the variant that only indexes match
// start positions.
func lz77EncodeTokens(data []byte) []byte {
	var out []byte
	n := len(data)
	if n == 0 {
		return lz77EmitToken(out, nil, 0, 0)
	}

	head := make([]int32, lz77HashMask+1)
	for i := range head {
		head[i] = -1
	}
	prev := make([]int32, n)

	insert := func(pos int) {
		if pos+4 > n {
			return
		}
		h := lz77Hash(data[pos:])
		prev[pos] = head[h]
		head[h] = int32(pos)
	}

	i := 0
	litStart := 0
	for i < n {
		minMatch := lz77MinMatchNoLits
		if i > litStart {
			minMatch = lz77MinMatchLits
		}
		bestLen, bestOffset := lz77FindMatch(data, head, prev, i)
		if bestLen >= minMatch {
			out = lz77EmitToken(out, data[litStart:i], bestLen, bestOffset)
			end := i + bestLen
			for p := i; p < end; p++ {
				insert(p)
			}
			i = end
			litStart = i
			continue
		}
		insert(i)
		i++
	}
	out = lz77EmitToken(out, data[litStart:i], 0, 0)
	return out
}

func lz77FindMatch(data []byte, head, prev []int32, pos int) (bestLen, bestOffset int) {
	n := len(data)
	if pos+4 > n {
		return 0, 0
	}
	limit := n - pos
	if limit > lz77MaxMatch {
		limit = lz77MaxMatch
	}
	h := lz77Hash(data[pos:])
	cand := head[h]
	hops := 0
	for cand >= 0 && hops < lz77MaxChain {
		c := int(cand)
		if pos-c > lz77WindowSize {
			break
		}
		length := lz77MatchLength(data, c, pos, limit)
		if length > bestLen {
			bestLen = length
			bestOffset = pos - c
			if bestLen >= limit {
				break
			}
		}
		cand = prev[c]
		hops++
	}
	return bestLen, bestOffset
}

func lz77MatchLength(data []byte, a, b, limit int) int {
	n := 0
	for n < limit && data[a+n] == data[b+n] {
		n++
	}
	return n
}

func lz77Hash(b []byte) uint32 {
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return (v * lz77HashMultiplier) >> 16 & lz77HashMask
}

// lz77EmitToken appends one control byte (+ extension bytes), the literal
// run, any match-length extension bytes, and the 2-byte back-offset.
// offset == 0 marks a literal-run-only token with no match; matchLen is
// ignored in that case. The block decoder stops at it; the streaming
// decoder skips the match copy and keeps reading.
func lz77EmitToken(out []byte, lits []byte, matchLen, offset int) []byte {
	litNib, litExt := lz77NibbleEncode(len(lits))
	var matchNib int
	var matchExt []byte
	if offset != 0 {
		matchNib, matchExt = lz77NibbleEncode(matchLen - 3)
	}
	out = append(out, byte(litNib<<4|matchNib))
	out = append(out, litExt...)
	out = append(out, lits...)
	out = append(out, matchExt...)
	var offBuf [2]byte
	binary.LittleEndian.PutUint16(offBuf[:], uint16(offset))
	return append(out, offBuf[:]...)
}

// lz77NibbleEncode splits n into a 4-bit nibble (0-14 literal, 15 meaning
// "read an extension chain") and, if needed, the chain of continuation
// bytes (each 0-254 terminates the chain, 255 continues it).
func lz77NibbleEncode(n int) (int, []byte) {
	if n < 15 {
		return n, nil
	}
	remaining := n - 15
	var ext []byte
	for remaining >= 255 {
		ext = append(ext, 255)
		remaining -= 255
	}
	ext = append(ext, byte(remaining))
	return 15, ext
}

func lz77DecodeTokens(payload []byte, origLen int) ([]byte, error) {
	out := make([]byte, 0, origLen)
	pos := 0

	readByteAt := func() (byte, error) {
		if pos >= len(payload) {
			return 0, fmt.Errorf("%w: lz77 token stream", ErrTruncated)
		}
		b := payload[pos]
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

	for len(out) < origLen {
		ctrl, err := readByteAt()
		if err != nil {
			return nil, err
		}
		litLen, err := readExt(int(ctrl >> 4))
		if err != nil {
			return nil, err
		}
		if pos+litLen > len(payload) {
			return nil, fmt.Errorf("%w: lz77 literal run", ErrTruncated)
		}
		out = append(out, payload[pos:pos+litLen]...)
		pos += litLen

		matchLenMinus3, err := readExt(int(ctrl & 0x0F))
		if err != nil {
			return nil, err
		}
		if pos+2 > len(payload) {
			return nil, fmt.Errorf("%w: lz77 offset", ErrTruncated)
		}
		offset := int(binary.LittleEndian.Uint16(payload[pos : pos+2]))
		pos += 2
		if offset == 0 {
			break
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
	if len(out) > origLen {
		out = out[:origLen]
	}
	return out, nil
}
