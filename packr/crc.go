package packr

import "hash/crc32"

// crcTable is the IEEE CRC-32 table: polynomial 0xEDB88320 (reflected),
// initial value 0xFFFFFFFF, final XOR 0xFFFFFFFF, exactly what the wire
// format requires and exactly what hash/crc32 computes out of the box.
var crcTable = crc32.MakeTable(crc32.IEEE)

// computeCRC returns the IEEE CRC-32 of data.
func computeCRC(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}
