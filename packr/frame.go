package packr

import (
	"encoding/binary"
	"fmt"
)

// magic is "PKR1" in wire order.
var magic = [4]byte{0x50, 0x4B, 0x52, 0x31}

const wireVersion = 0x01

// frameFlags are the bits of the frame's single flags byte.
type frameFlags uint8

const (
	flagHasDictUpdate frameFlags = 0x01
	flagUsesRice      frameFlags = 0x02
	flagDictReset     frameFlags = 0x04
	flagReservedMask  frameFlags = 0xF8 // bits 3-7, must be zero
)

// buildFrame assembles magic|version|flags|symbol_count|body and appends
// its CRC-32, computed over everything before the CRC itself and before
// any LZ77 wrap.
func buildFrame(flags frameFlags, symbolCount int, body []byte) []byte {
	out := make([]byte, 0, 4+1+1+5+len(body)+4)
	out = append(out, magic[:]...)
	out = append(out, wireVersion, byte(flags))
	out = appendVarint(out, uint64(symbolCount))
	out = append(out, body...)
	crc := computeCRC(out)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	return append(out, crcBuf[:]...)
}

// parsedFrame is the result of splitting a frame into its header fields,
// body, and verified CRC.
type parsedFrame struct {
	Version     uint8
	Flags       frameFlags
	SymbolCount int
	Body        []byte
}

// parseFrame validates magic/version/CRC and splits out the body. data
// must already have any LZ77 wrap removed.
func parseFrame(data []byte) (*parsedFrame, error) {
	const minLen = 4 + 1 + 1 + 1 + 4 // magic+version+flags+min-varint+crc
	if len(data) < minLen {
		return nil, &FrameTooShortError{Len: len(data), Min: minLen}
	}
	if data[0] != magic[0] || data[1] != magic[1] || data[2] != magic[2] || data[3] != magic[3] {
		return nil, fmt.Errorf("%w: got %x", ErrBadMagic, data[0:4])
	}
	version := data[4]
	if version != wireVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}
	flags := frameFlags(data[5])
	if flags&flagReservedMask != 0 {
		return nil, fmt.Errorf("%w: reserved flag bits set", ErrBadToken)
	}
	symbolCount, n, err := readVarint(data, 6)
	if err != nil {
		return nil, err
	}
	bodyEnd := len(data) - 4
	bodyStart := 6 + n
	if bodyStart > bodyEnd {
		return nil, fmt.Errorf("%w: header overruns frame", ErrTruncated)
	}
	storedCRC := binary.LittleEndian.Uint32(data[bodyEnd:])
	gotCRC := computeCRC(data[:bodyEnd])
	if storedCRC != gotCRC {
		return nil, &CRCMismatchError{Expected: storedCRC, Got: gotCRC}
	}
	return &parsedFrame{
		Version:     version,
		Flags:       flags,
		SymbolCount: int(symbolCount),
		Body:        data[bodyStart:bodyEnd],
	}, nil
}

// wrapLZ77 prefixes lz77-compressed bytes with the 0xFE 0x03 transform
// marker.
func wrapLZ77(compressed []byte) []byte {
	out := make([]byte, 0, 2+len(compressed))
	out = append(out, lz77WrapByte0, lz77WrapByte1)
	return append(out, compressed...)
}

// isLZ77Wrapped reports whether data begins with the transform marker.
func isLZ77Wrapped(data []byte) bool {
	return len(data) >= 2 && data[0] == lz77WrapByte0 && data[1] == lz77WrapByte1
}
