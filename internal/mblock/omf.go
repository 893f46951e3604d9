package mblock

import "github.com/hse-go/kvengine/internal/encoding"

// On-media layout of a file's memory-mapped metadata region: a fixed-size
// header page followed by one 8-byte little-endian slot per block id.
// Zero in a slot means unused; non-zero is a committed ID.
const (
	// HeaderLen is the size in bytes of the header page. It is page-sized
	// so the slot table that follows starts on its own page, matching the
	// teacher's page-aligned mmap regions.
	HeaderLen = 4096

	// SlotLen is the size in bytes of one OID slot.
	SlotLen = 8
)

// header is the packed {fileid, uniq} pair persisted at offset 0 of the
// meta region.
type header struct {
	fileid uint32
	uniq   uint32
}

func encodeHeader(h header, dst []byte) {
	encoding.EncodeFixed32(dst[0:4], h.fileid)
	encoding.EncodeFixed32(dst[4:8], h.uniq)
}

func decodeHeader(src []byte) header {
	return header{
		fileid: encoding.DecodeFixed32(src[0:4]),
		uniq:   encoding.DecodeFixed32(src[4:8]),
	}
}

// slotOffset returns the byte offset of blockID's slot within the meta
// region (header page included).
func slotOffset(blockID uint32) int64 {
	return HeaderLen + int64(blockID)*SlotLen
}

func encodeSlot(dst []byte, id ID) {
	encoding.EncodeFixed64(dst, uint64(id))
}

func decodeSlot(src []byte) ID {
	return ID(encoding.DecodeFixed64(src))
}

// metaLen returns the total meta-region size for a file holding maxBlocks
// slots.
func metaLen(maxBlocks uint64) int64 {
	return HeaderLen + int64(maxBlocks)*SlotLen
}
