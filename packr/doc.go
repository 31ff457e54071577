// Package packr implements PACKR, a structure-aware streaming binary codec
// for JSON-shaped telemetry. It replaces a general JSON encoder/decoder
// with one that exploits repeated field names, repeated string and MAC
// values, and time-series-like numeric drift, by combining per-category
// LRU dictionaries, tiered per-field delta encoding, a columnar batch
// encoder for arrays of homogeneous objects, and an optional LZ77
// post-transform over the framed byte stream.
//
// A single Encoder or Decoder instance is not safe for concurrent use, and
// dictionaries/delta state are never shared across streams: each stream
// builds its own from scratch. Finish/NewDecoder cover a single framed
// value stream; FlushFrame/NewDecoderSession let dictionaries and delta
// state carry forward across a sequence of frames on a longer-lived link.
package packr
