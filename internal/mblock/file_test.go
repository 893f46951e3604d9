package mblock

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/hse-go/kvengine/internal/merr"
)

const testBlockSize = 4096

// alignedBuffer returns an n-byte buffer backed by an anonymous mmap, so
// it satisfies O_DIRECT's memory-alignment requirement on platforms where
// data files are opened direct.
func alignedBuffer(t *testing.T, n int) []byte {
	t.Helper()
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		t.Fatalf("mmap anon buffer: %v", err)
	}
	t.Cleanup(func() { unix.Munmap(b) })
	return b
}

func TestFile_AllocCommitFindReadCycle(t *testing.T) {
	dir := t.TempDir()
	f, err := Create(dir, 0, 1, 64, testBlockSize)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	id, err := f.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if id.Uniq() != 1 {
		t.Fatalf("Uniq() = %d, want 1", id.Uniq())
	}

	payload := alignedBuffer(t, testBlockSize)
	for i := range payload {
		payload[i] = byte(i)
	}

	if err := f.Write(id, [][]byte{payload}, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Commit(id); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := f.Find(id); err != nil {
		t.Fatalf("Find after commit: %v", err)
	}

	out := alignedBuffer(t, testBlockSize)
	if err := f.Read(id, [][]byte{out}, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := range out {
		if out[i] != byte(i) {
			t.Fatalf("Read byte %d = %d, want %d", i, out[i], byte(i))
		}
	}
}

func TestFile_AbortLeavesSlotZero(t *testing.T) {
	dir := t.TempDir()
	f, err := Create(dir, 0, 1, 64, testBlockSize)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	id, err := f.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := f.Abort(id); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	off := slotOffset(id.BlockID())
	if slot := decodeSlot(f.metaRegion[off : off+SlotLen]); slot != 0 {
		t.Fatalf("slot after Abort = %d, want 0", slot)
	}
	if err := f.Find(id); merr.KindOf(err) != merr.KindNotFound {
		t.Fatalf("Find after Abort = %v, want KindNotFound (free)", err)
	}
}

func TestFile_FreeThenFreeAgainFails(t *testing.T) {
	dir := t.TempDir()
	f, err := Create(dir, 0, 1, 64, testBlockSize)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	id, err := f.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := f.Commit(id); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := f.Delete(id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.Abort(id); merr.KindOf(err) != merr.KindNotFound {
		t.Fatalf("second free = %v, want KindNotFound", err)
	}
}

func TestFile_LoadRebuildsRegionMapFromSlots(t *testing.T) {
	dir := t.TempDir()
	f, err := Create(dir, 0, 1, 64, testBlockSize)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	id, err := f.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := f.Commit(id); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2, err := Load(dir, 0, 1, 64, testBlockSize)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f2.Close()

	if err := f2.Find(id); err != nil {
		t.Fatalf("Find after Load: %v", err)
	}

	id2, err := f2.Alloc()
	if err != nil {
		t.Fatalf("Alloc after Load: %v", err)
	}
	if id2.BlockID() == id.BlockID() {
		t.Fatal("Alloc after Load returned an already-committed block")
	}
}

func TestFile_UniqPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	f, err := Create(dir, 0, 1, UniqDelta+8, testBlockSize)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var last ID
	for i := 0; i < UniqDelta+2; i++ {
		id, err := f.Alloc()
		if err != nil {
			t.Fatalf("Alloc(%d): %v", i, err)
		}
		last = id
	}
	if last.Uniq() < UniqDelta {
		t.Fatalf("Uniq() = %d, want >= %d after crossing UniqDelta boundary", last.Uniq(), UniqDelta)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f2, err := Load(dir, 0, 1, UniqDelta+8, testBlockSize)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f2.Close()

	id, err := f2.Alloc()
	if err != nil {
		t.Fatalf("Alloc after reload: %v", err)
	}
	if id.Uniq() < UniqDelta+UniqDelta {
		t.Fatalf("Uniq() after reload = %d, want >= %d", id.Uniq(), UniqDelta+UniqDelta)
	}
}

func TestFile_FieldFitOverflowIsInternal(t *testing.T) {
	if _, err := Pack(1<<uniqBits, 0, 0, 0); merr.KindOf(err) != merr.KindInternal {
		t.Fatalf("Pack with oversized uniq = %v, want KindInternal", err)
	}
}
