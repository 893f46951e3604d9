// Package encoding provides the little-endian fixed-width codecs the
// mblock on-media format needs: a 4-byte header field pair and the 8-byte
// packed mbid slot value (internal/mblock/omf.go).
//
// Reference: RocksDB v10.7.5
//   - util/coding.h (fixed-width encode/decode shape)
package encoding

import "encoding/binary"

// EncodeFixed32 encodes a uint32 into a 4-byte little-endian buffer.
// REQUIRES: dst has at least 4 bytes.
func EncodeFixed32(dst []byte, value uint32) {
	binary.LittleEndian.PutUint32(dst, value)
}

// DecodeFixed32 decodes a uint32 from a 4-byte little-endian buffer.
// REQUIRES: src has at least 4 bytes.
func DecodeFixed32(src []byte) uint32 {
	return binary.LittleEndian.Uint32(src)
}

// EncodeFixed64 encodes a uint64 into an 8-byte little-endian buffer.
// REQUIRES: dst has at least 8 bytes.
func EncodeFixed64(dst []byte, value uint64) {
	binary.LittleEndian.PutUint64(dst, value)
}

// DecodeFixed64 decodes a uint64 from an 8-byte little-endian buffer.
// REQUIRES: src has at least 8 bytes.
func DecodeFixed64(src []byte) uint64 {
	return binary.LittleEndian.Uint64(src)
}
