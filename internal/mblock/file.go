package mblock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/hse-go/kvengine/internal/merr"
	"github.com/hse-go/kvengine/internal/region"
)

var pageSize = int64(os.Getpagesize())

// FileName computes the on-disk data file name for a given media-class id
// and file id, following a fixed pattern so the pair is recoverable from
// the name alone during a directory scan.
func FileName(mclass, fileid uint32) string {
	return fmt.Sprintf("%d.%08x.mblock", mclass, fileid)
}

// File is one mblock file: a fixed-width block allocator over a sparse
// data file, backed by a region-map free-space tracker and a
// memory-mapped per-file metadata region (header page + OID slot table).
type File struct {
	fileID    uint32
	mclass    uint32
	maxBlocks uint64
	blockSize uint64

	dataFd *os.File

	metaFd     *os.File
	metaRegion []byte

	uniqMu sync.Mutex
	uniq   uint64

	metaMu sync.Mutex

	rmap *region.Map
}

// Create formats a new mblock file in dir: truncates the data file to its
// maximum sparse size, builds a zeroed metadata region, and initializes
// the region map with the entire block range free.
func Create(dir string, fileID, mclass uint32, maxBlocks, blockSize uint64) (f *File, err error) {
	const op = "mblock.Create"

	dataPath := filepath.Join(dir, FileName(mclass, fileID))
	metaPath := dataPath + ".meta"

	dataFd, err := openDataFile(dataPath, true)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	// Scoped cleanup: unlink what we created if any later step fails.
	// Disarmed (cleanup=nil) only on full success.
	cleanup := func() {
		dataFd.Close()
		os.Remove(dataPath)
	}
	defer func() {
		if cleanup != nil {
			cleanup()
		}
	}()

	if err := dataFd.Truncate(int64(maxBlocks * blockSize)); err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}

	metaFd, err := os.OpenFile(metaPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	metaCleanup := func() {
		metaFd.Close()
		os.Remove(metaPath)
	}
	prevCleanup := cleanup
	cleanup = func() {
		metaCleanup()
		prevCleanup()
	}

	mlen := metaLen(maxBlocks)
	if err := metaFd.Truncate(mlen); err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}

	region_, err := unix.Mmap(int(metaFd.Fd()), 0, int(mlen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}

	hdr := header{fileid: fileID, uniq: 0}
	encodeHeader(hdr, region_[0:8])
	if err := unix.Msync(region_[0:pageSize], unix.MS_SYNC); err != nil {
		unix.Munmap(region_)
		return nil, merr.Wrap(merr.KindIO, op, err)
	}

	f = &File{
		fileID:     fileID,
		mclass:     mclass,
		maxBlocks:  maxBlocks,
		blockSize:  blockSize,
		dataFd:     dataFd,
		metaFd:     metaFd,
		metaRegion: region_,
		uniq:       0,
		rmap:       region.NewMap(uint32(maxBlocks) + 1),
	}

	cleanup = nil // success, disarm
	return f, nil
}

// Load opens an existing mblock file, validates its header, bumps the
// in-memory uniq counter past anything that may not have been flushed
// before a crash, and rebuilds the region map by scanning the slot table.
func Load(dir string, fileID, mclass uint32, maxBlocks, blockSize uint64) (f *File, err error) {
	const op = "mblock.Load"

	dataPath := filepath.Join(dir, FileName(mclass, fileID))
	metaPath := dataPath + ".meta"

	dataFd, err := openDataFile(dataPath, false)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	cleanup := func() { dataFd.Close() }
	defer func() {
		if cleanup != nil {
			cleanup()
		}
	}()

	metaFd, err := os.OpenFile(metaPath, os.O_RDWR, 0o644)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}
	prevCleanup := cleanup
	cleanup = func() { metaFd.Close(); prevCleanup() }

	mlen := metaLen(maxBlocks)
	region_, err := unix.Mmap(int(metaFd.Fd()), 0, int(mlen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}

	hdr := decodeHeader(region_[0:8])
	if hdr.fileid != fileID {
		unix.Munmap(region_)
		return nil, merr.New(merr.KindBadMetadata, op, "header fileid mismatch")
	}

	f = &File{
		fileID:     fileID,
		mclass:     mclass,
		maxBlocks:  maxBlocks,
		blockSize:  blockSize,
		dataFd:     dataFd,
		metaFd:     metaFd,
		metaRegion: region_,
		uniq:       uint64(hdr.uniq) + UniqDelta,
		rmap:       region.NewMap(uint32(maxBlocks) + 1),
	}

	for block := uint64(0); block < maxBlocks; block++ {
		off := slotOffset(uint32(block))
		slot := decodeSlot(region_[off : off+SlotLen])
		if slot == 0 {
			continue
		}
		if uint64(slot.BlockID()) >= MaxBlocks {
			unix.Munmap(region_)
			return nil, merr.New(merr.KindBadMetadata, op, "slot block id out of range")
		}
		key := uint32(block) + 1
		if err := f.rmap.Insert(key); err != nil {
			unix.Munmap(region_)
			return nil, merr.Wrap(merr.KindBadMetadata, op, err)
		}
	}

	cleanup = nil
	return f, nil
}

// Close tears down the file's in-memory structures and closes its
// descriptors. The data file and slot table are left exactly as last
// committed; no implicit flush occurs.
func (f *File) Close() error {
	var err error
	if f.metaRegion != nil {
		if e := unix.Munmap(f.metaRegion); e != nil {
			err = e
		}
		f.metaRegion = nil
	}
	if e := f.metaFd.Close(); e != nil && err == nil {
		err = e
	}
	if e := f.dataFd.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return merr.Wrap(merr.KindIO, "mblock.Close", err)
	}
	return nil
}

// uniqGen advances the file's uniq counter and, every UniqDelta
// allocations, persists it to the header page under the meta lock. Lock
// order is uniq -> meta, matching the rare case where both are needed.
func (f *File) uniqGen() (uint64, error) {
	f.uniqMu.Lock()
	defer f.uniqMu.Unlock()

	f.uniq++
	u := f.uniq
	if u%UniqDelta != 0 {
		return u, nil
	}

	f.metaMu.Lock()
	defer f.metaMu.Unlock()

	hdr := header{fileid: f.fileID, uniq: uint32(u)}
	encodeHeader(hdr, f.metaRegion[0:8])
	if err := unix.Msync(f.metaRegion[0:pageSize], unix.MS_SYNC); err != nil {
		return 0, merr.Wrap(merr.KindIO, "mblock.uniqGen", err)
	}
	return u, nil
}

// Alloc draws a block key from the region map and packs it, fileid,
// mclass, and a freshly generated uniq into an ID. Both the region-map
// key and the uniq advance are rolled back if packing fails field-fit
// validation.
func (f *File) Alloc() (ID, error) {
	const op = "mblock.Alloc"

	key, err := f.rmap.Alloc()
	if err != nil {
		return 0, err
	}

	uniq, err := f.uniqGen()
	if err != nil {
		_ = f.rmap.Free(key)
		return 0, err
	}

	id, err := Pack(uniq, f.fileID, f.mclass, key-1)
	if err != nil {
		_ = f.rmap.Free(key)
		return 0, merr.Wrap(merr.KindInternal, op, err)
	}
	return id, nil
}

// blockAllocated reports whether key is currently allocated, per the
// region map's free-space semantics: a free-map hit means free, so
// KindNotFound from the map means occupied.
func (f *File) blockAllocated(key uint32) (bool, error) {
	err := f.rmap.Find(key)
	if err == nil {
		return false, nil
	}
	if merr.KindOf(err) == merr.KindNotFound {
		return true, nil
	}
	return false, err
}

// Commit writes id into its block's slot and msyncs that slot's page.
// The block must already be allocated (drawn from Alloc and not yet
// committed or freed).
func (f *File) Commit(id ID) error {
	const op = "mblock.Commit"

	key := id.BlockID() + 1
	allocated, err := f.blockAllocated(key)
	if err != nil {
		return err
	}
	if !allocated {
		return merr.New(merr.KindInternal, op, "block not allocated")
	}

	f.metaMu.Lock()
	defer f.metaMu.Unlock()

	off := slotOffset(id.BlockID())
	encodeSlot(f.metaRegion[off:off+SlotLen], id)
	pageStart := off &^ (pageSize - 1)
	pageEnd := pageStart + pageSize
	if pageEnd > int64(len(f.metaRegion)) {
		pageEnd = int64(len(f.metaRegion))
	}
	if err := unix.Msync(f.metaRegion[pageStart:pageEnd], unix.MS_SYNC); err != nil {
		return merr.Wrap(merr.KindIO, op, err)
	}
	return nil
}

// Abort releases id's region-map key without touching metadata: the slot
// was never written, so there is nothing on disk to undo.
func (f *File) Abort(id ID) error {
	return f.rmap.Free(id.BlockID() + 1)
}

// Delete clears id's slot, punches a hole over its data range, and
// returns its key to the region map.
func (f *File) Delete(id ID) error {
	const op = "mblock.Delete"

	f.metaMu.Lock()
	off := slotOffset(id.BlockID())
	encodeSlot(f.metaRegion[off:off+SlotLen], ID(0))
	pageStart := off &^ (pageSize - 1)
	pageEnd := pageStart + pageSize
	if pageEnd > int64(len(f.metaRegion)) {
		pageEnd = int64(len(f.metaRegion))
	}
	syncErr := unix.Msync(f.metaRegion[pageStart:pageEnd], unix.MS_SYNC)
	f.metaMu.Unlock()
	if syncErr != nil {
		return merr.Wrap(merr.KindIO, op, syncErr)
	}

	dataOff := int64(BlockOffset(id, f.blockSize))
	if err := unix.Fallocate(int(f.dataFd.Fd()), unix.FALLOC_FL_PUNCH_HOLE|unix.FALLOC_FL_KEEP_SIZE, dataOff, int64(f.blockSize)); err != nil {
		return merr.Wrap(merr.KindIO, op, err)
	}

	return f.rmap.Free(id.BlockID() + 1)
}

// Find reports whether id's block is currently allocated. It returns
// KindNotFound iff the block is free.
func (f *File) Find(id ID) error {
	key := id.BlockID() + 1
	allocated, err := f.blockAllocated(key)
	if err != nil {
		return err
	}
	if !allocated {
		return merr.New(merr.KindNotFound, "mblock.Find", "block is free")
	}
	return nil
}

// Read validates id is allocated, then scatter-reads into iovs starting
// at userOff within the block. An empty iovs is a no-op success.
func (f *File) Read(id ID, iovs [][]byte, userOff uint64) error {
	const op = "mblock.Read"
	if len(iovs) == 0 {
		return nil
	}
	if err := f.Find(id); err != nil {
		return err
	}
	off := int64(BlockOffset(id, f.blockSize) + userOff)
	if _, err := unix.Preadv(int(f.dataFd.Fd()), iovs, off); err != nil {
		return merr.Wrap(merr.KindIO, op, err)
	}
	return nil
}

// Write validates id is allocated, then gather-writes iovs starting at
// userOff within the block. An empty iovs is a no-op success.
func (f *File) Write(id ID, iovs [][]byte, userOff uint64) error {
	const op = "mblock.Write"
	if len(iovs) == 0 {
		return nil
	}
	if err := f.Find(id); err != nil {
		return err
	}
	off := int64(BlockOffset(id, f.blockSize) + userOff)
	if _, err := unix.Pwritev(int(f.dataFd.Fd()), iovs, off); err != nil {
		return merr.Wrap(merr.KindIO, op, err)
	}
	return nil
}
