// Package mblock implements the fixed-width block allocator over a sparse
// media file: a region-tree free-space map per file, crash-safe per-file
// metadata logging (an mmap'd header page plus an OID slot table), and
// direct-I/O read/write paths for committed blocks.
package mblock

import "github.com/hse-go/kvengine/internal/merr"

// ID is a packed 64-bit mblock identifier: [uniq | fileid | mclass | block].
// block is the region-map allocator key minus 1.
//
// The field widths are not specified by name in the distilled source
// (only the packing order); 20/8/4/32 is chosen so uniq wraps only after
// 2^20 allocations of a single file before reuse risk, fileid and mclass
// comfortably exceed any realistic media-class/file-count configuration,
// and block covers the full 32-bit region-map key space used by §4.C.
type ID uint64

const (
	blockBits  = 32
	mclassBits = 4
	fileidBits = 8
	uniqBits   = 64 - blockBits - mclassBits - fileidBits // 20

	blockShift  = 0
	mclassShift = blockShift + blockBits
	fileidShift = mclassShift + mclassBits
	uniqShift   = fileidShift + fileidBits

	blockMask  = (uint64(1) << blockBits) - 1
	mclassMask = (uint64(1) << mclassBits) - 1
	fileidMask = (uint64(1) << fileidBits) - 1
	uniqMask   = (uint64(1) << uniqBits) - 1

	// MaxBlocks is the number of block ids the block field can hold; valid
	// (0-based) block ids are 0 through MaxBlocks-1.
	MaxBlocks = uint64(1) << blockBits

	// UniqDelta is the interval at which the persisted uniq counter is
	// advanced and msync'd; a load after a crash bumps uniq by this much
	// to avoid ever reusing an un-flushed value.
	UniqDelta = 1024
)

// Pack builds an ID from its four fields, field-fit checking each one.
// A field that overflows its width returns KindInternal, matching the
// spec's "packed-field overflow" invariant violation category.
func Pack(uniq uint64, fileid, mclass uint32, block uint32) (ID, error) {
	const op = "mblock.Pack"
	if uniq&^uniqMask != 0 {
		return 0, merr.New(merr.KindInternal, op, "uniq exceeds field width")
	}
	if uint64(fileid)&^fileidMask != 0 {
		return 0, merr.New(merr.KindInternal, op, "fileid exceeds field width")
	}
	if uint64(mclass)&^mclassMask != 0 {
		return 0, merr.New(merr.KindInternal, op, "mclass exceeds field width")
	}
	if uint64(block)&^blockMask != 0 {
		return 0, merr.New(merr.KindInternal, op, "block exceeds field width")
	}
	id := uniq<<uniqShift | uint64(fileid)<<fileidShift | uint64(mclass)<<mclassShift | uint64(block)<<blockShift
	return ID(id), nil
}

// BlockID returns the packed block field (the allocator key minus 1).
func (id ID) BlockID() uint32 {
	return uint32((uint64(id) >> blockShift) & blockMask)
}

// MClass returns the packed media-class field.
func (id ID) MClass() uint32 {
	return uint32((uint64(id) >> mclassShift) & mclassMask)
}

// FileID returns the packed fileid field.
func (id ID) FileID() uint32 {
	return uint32((uint64(id) >> fileidShift) & fileidMask)
}

// Uniq returns the packed uniq field.
func (id ID) Uniq() uint64 {
	return (uint64(id) >> uniqShift) & uniqMask
}

// BlockOffset returns the byte offset of id's block within its data file.
func BlockOffset(id ID, blockSize uint64) uint64 {
	return uint64(id.BlockID()) * blockSize
}
