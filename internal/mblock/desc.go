package mblock

import (
	"golang.org/x/sys/unix"

	"github.com/hse-go/kvengine/internal/merr"
)

// Desc is a memory-mapped handle onto a committed block, used by read
// paths that want page-cache-backed access (and read-ahead hints) rather
// than going through File.Read's direct I/O.
type Desc struct {
	base         []byte
	allocPages   uint32
	writtenPages uint32
	raPages      uint32
	mclass       uint32
	mbid         ID
}

// Mmap maps id's block (already committed on f) read-only, sized to
// allocPages pages, recording writtenPages (the portion actually holding
// data) and raPages (the read-ahead chunk size for madvise WILLNEED).
func Mmap(f *File, id ID, allocPages, writtenPages, raPages uint32) (*Desc, error) {
	const op = "mblock.Mmap"

	if err := f.Find(id); err != nil {
		return nil, err
	}

	off := int64(BlockOffset(id, f.blockSize))
	length := int(allocPages) * int(pageSize)
	base, err := unix.Mmap(int(f.dataFd.Fd()), off, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, merr.Wrap(merr.KindIO, op, err)
	}

	return &Desc{
		base:         base,
		allocPages:   allocPages,
		writtenPages: writtenPages,
		raPages:      raPages,
		mclass:       id.MClass(),
		mbid:         id,
	}, nil
}

// Munmap tears down the mapping iff this descriptor still holds one.
// Calling it twice is a no-op.
func (d *Desc) Munmap() error {
	if d.base == nil {
		return nil
	}
	err := unix.Munmap(d.base)
	d.base = nil
	if err != nil {
		return merr.Wrap(merr.KindIO, "mblock.Munmap", err)
	}
	return nil
}

// MadvisePages advises the kernel about pg_cnt pages starting at page pg.
// WILLNEED advice is issued in raPages-sized chunks (to bound how much
// read-ahead a single call triggers); any other advice is issued in one
// chunk covering the whole clipped range. The range is silently clipped
// to writtenPages; pg+pgCnt beyond allocPages fails bad-argument.
func (d *Desc) MadvisePages(pg, pgCnt uint32, advice int) error {
	const op = "mblock.MadvisePages"

	if pg > d.allocPages || pgCnt > d.allocPages-pg {
		return merr.New(merr.KindBadArgument, op, "page range exceeds allocated pages")
	}

	if pg >= d.writtenPages {
		return nil
	}
	if pg+pgCnt > d.writtenPages {
		pgCnt = d.writtenPages - pg
	}
	if pgCnt == 0 {
		return nil
	}

	chunk := pgCnt
	if advice == unix.MADV_WILLNEED && d.raPages > 0 {
		chunk = d.raPages
	}

	pageBytes := uint32(pageSize)
	remaining := pgCnt
	cur := pg
	for remaining > 0 {
		n := chunk
		if n > remaining {
			n = remaining
		}
		start := uint64(cur) * uint64(pageBytes)
		end := start + uint64(n)*uint64(pageBytes)
		if end > uint64(len(d.base)) {
			end = uint64(len(d.base))
		}
		if err := unix.Madvise(d.base[start:end], advice); err != nil {
			return merr.Wrap(merr.KindIO, op, err)
		}
		cur += n
		remaining -= n
	}
	return nil
}

// MBID returns the descriptor's backing block id.
func (d *Desc) MBID() ID { return d.mbid }

// MClass returns the descriptor's media class.
func (d *Desc) MClass() uint32 { return d.mclass }
