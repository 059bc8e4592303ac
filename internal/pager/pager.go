package pager

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pager owns a single data file: the fixed-size page cache on top of it,
// the free-list chain threaded through its pages, and the rollback
// journal that makes a run of writes commit or vanish as one unit
// (spec.md §4.1).
type Pager struct {
	path     string
	f        *os.File
	pageSize int
	cache    *cache
	journal  *journal
	lock     fileLock

	root   RootPage
	inTx   bool
	dirty0 bool // root page dirtied this transaction

	// freeSet is every page id currently reachable from the free-list
	// chain — both free-list node pages themselves and the entries
	// queued in their FreePages arrays — reconstructed on Open and kept
	// current by NewPage/Delete (spec.md §4.1, §8 "free_pages +
	// used_pages = total_pages").
	freeSet map[PageID]struct{}

	stats Stats
}

// Options configures a freshly opened Pager. Zero values fall back to
// DefaultPageSize / an unbounded cache.
type Options struct {
	PageSize      int
	CacheCapacity int
}

// Open opens (or creates) the data file at path. If a stale rollback
// journal is present — the previous process crashed mid-transaction — it
// is replayed before the data file is trusted (spec.md §7 "Crash
// recovery": "re-opening after a crash must reproduce the same bytes as
// a clean rollback").
func Open(path string, opts Options) (*Pager, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	if journalExists(path) {
		log.Warn().Str("path", path).Msg("pager: stale rollback journal found, recovering before open")
		f, err := os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return nil, fmt.Errorf("pager: open data file for recovery: %w", err)
		}
		jr := newJournal(path, pageSize)
		if err := jr.rollback(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("pager: recover journal: %w", err)
		}
		f.Close()
		log.Info().Str("path", path).Msg("pager: crash recovery complete")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("pager: open data file: %w", err)
	}

	lk, err := lockFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("pager: lock data file: %w", err)
	}

	p := &Pager{
		path:     path,
		f:        f,
		pageSize: pageSize,
		cache:    newCache(opts.CacheCapacity),
		lock:     lk,
		freeSet:  make(map[PageID]struct{}),
	}
	p.journal = newJournal(path, pageSize)

	fi, err := f.Stat()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("pager: stat data file: %w", err)
	}
	if fi.Size() == 0 {
		id := uuid.New()
		p.root = RootPage{PageCounter: 1, FreePageHead: InvalidPageID, PageSize: uint32(pageSize)}
		copy(p.root.InstanceID[:], id[:])
		if err := p.writeRootToFile(); err != nil {
			p.Close()
			return nil, err
		}
	} else {
		buf := make([]byte, pageSize)
		if _, err := f.ReadAt(buf, 0); err != nil {
			p.Close()
			return nil, fmt.Errorf("pager: read root page: %w", err)
		}
		p.root = UnmarshalRootPage(buf)
		p.pageSize = int(p.root.PageSize)
	}

	if err := p.reconstructFreeSet(); err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// reconstructFreeSet walks the free-list chain from root.FreePageHead
// (following Prev, the direction NewPage follows when a head page's own
// entries are exhausted) and records every page id it can reach — both
// the free-list node pages themselves and the entries queued in their
// FreePages arrays — so Get can refuse stale reads and Stats can report
// FreePages (spec.md §8 "free_pages + used_pages = total_pages").
func (p *Pager) reconstructFreeSet() error {
	id := p.root.FreePageHead
	for id != InvalidPageID {
		buf, err := p.getRaw(id)
		if err != nil {
			return fmt.Errorf("pager: reconstruct free set: %w", err)
		}
		fl := WrapFreeListPage(buf)
		p.freeSet[id] = struct{}{}
		for _, entry := range fl.AllEntries() {
			p.freeSet[entry] = struct{}{}
		}
		id = fl.Prev()
	}
	return nil
}

func (p *Pager) writeRootToFile() error {
	buf := MarshalRootPage(&p.root, p.pageSize)
	if _, err := p.f.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("pager: write root page: %w", err)
	}
	return nil
}

// PageSize returns the page size this data file was created with.
func (p *Pager) PageSize() int { return p.pageSize }

func (p *Pager) offsetOf(id PageID) int64 { return int64(id) * int64(p.pageSize) }

// Get returns the page buffer for id, reading it from disk on a cache
// miss. The returned slice is cache-owned: callers must not retain it
// past the next opcode that could evict it, per the PageID-not-pointer
// cursor contract. Refuses a page currently on the free-list (spec.md §8):
// a cursor holding a stale id onto a deleted page faults here instead of
// reading garbage left over from its prior life.
func (p *Pager) Get(id PageID) ([]byte, error) {
	if id != RootPageID {
		if _, free := p.freeSet[id]; free {
			return nil, fmt.Errorf("pager: page %d is free", id)
		}
	}
	return p.getRaw(id)
}

// getRaw is Get without the free-set check, for the pager's own
// free-list bookkeeping: NewPage/Delete legitimately read and write
// free-list node pages while they are still members of freeSet.
func (p *Pager) getRaw(id PageID) ([]byte, error) {
	if id == RootPageID {
		return MarshalRootPage(&p.root, p.pageSize), nil
	}
	if f := p.cache.lookup(id); f != nil {
		p.stats.CacheHits++
		return f.buf, nil
	}
	p.stats.CacheMisses++
	buf := make([]byte, p.pageSize)
	if _, err := p.f.ReadAt(buf, p.offsetOf(id)); err != nil {
		return nil, fmt.Errorf("pager: read page %d: %w", id, err)
	}
	if err := p.admit(&frame{id: id, buf: buf}); err != nil {
		return nil, err
	}
	return buf, nil
}

// admit inserts f into the cache, flushing an evicted dirty frame first.
func (p *Pager) admit(f *frame) error {
	evicted := p.cache.insert(f)
	if evicted != nil && evicted.dirty {
		if err := p.flushFrame(evicted); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pager) flushFrame(f *frame) error {
	if _, err := p.f.WriteAt(f.buf, p.offsetOf(f.id)); err != nil {
		return fmt.Errorf("pager: flush page %d: %w", f.id, err)
	}
	return nil
}

// GetForWrite returns id's buffer after journaling its pre-image (if this
// is the page's first write within the current transaction) and marking
// it dirty. Must be called inside Begin/Commit.
func (p *Pager) GetForWrite(id PageID) ([]byte, error) {
	if !p.inTx {
		return nil, fmt.Errorf("pager: write outside transaction")
	}
	if id == RootPageID {
		if !p.dirty0 {
			if err := p.journal.markDirty(RootPageID, nil); err != nil {
				return nil, err
			}
			p.dirty0 = true
		}
		return nil, fmt.Errorf("pager: root page must be modified via SetFreePageHead/bump counter, not GetForWrite")
	}
	f := p.cache.lookup(id)
	if f == nil {
		buf, err := p.Get(id)
		if err != nil {
			return nil, err
		}
		f = p.cache.lookup(id)
		_ = buf
	}
	if !f.dirty {
		preImage := make([]byte, len(f.buf))
		copy(preImage, f.buf)
		if err := p.journal.markDirty(id, preImage); err != nil {
			return nil, err
		}
		f.dirty = true
	}
	return f.buf, nil
}

// Pin keeps id resident across a compound multi-page operation so the
// cache cannot evict it mid-operation.
func (p *Pager) Pin(id PageID) {
	if id != RootPageID {
		p.cache.pin(id)
	}
}

// Unpin releases a Pin.
func (p *Pager) Unpin(id PageID) {
	if id != RootPageID {
		p.cache.unpin(id)
	}
}

// NewPage allocates a page id: reused from the free-list if one is
// available, otherwise a fresh id past the current page counter
// (spec.md §4.1 "Free-list"). The returned buffer is zeroed. Called
// outside a transaction it returns InvalidPageID (page id 0) and a nil
// buffer rather than an error: spec.md §4.1 defines this as new_page()'s
// documented outside-transaction result, not a fault.
func (p *Pager) NewPage() (PageID, []byte, error) {
	if !p.inTx {
		return InvalidPageID, nil, nil
	}
	if p.root.FreePageHead == InvalidPageID {
		id := p.root.PageCounter
		p.root.PageCounter++
		p.dirty0 = true
		buf := make([]byte, p.pageSize)
		if err := p.admit(&frame{id: id, buf: buf, dirty: true}); err != nil {
			return InvalidPageID, nil, err
		}
		if err := p.journal.markDirty(id, buf); err != nil {
			return InvalidPageID, nil, err
		}
		return id, buf, nil
	}

	headID := p.root.FreePageHead
	p.Pin(headID)
	defer p.Unpin(headID)
	headBuf, err := p.getRaw(headID)
	if err != nil {
		return InvalidPageID, nil, err
	}
	headPre := make([]byte, len(headBuf))
	copy(headPre, headBuf)
	head := WrapFreeListPage(headBuf)

	if id, ok := head.Pop(); ok {
		if err := p.journal.markDirty(headID, headPre); err != nil {
			return InvalidPageID, nil, err
		}
		if f := p.cache.lookup(headID); f != nil {
			f.dirty = true
		}
		p.dirty0 = true // FreePageHead unchanged but ensures root flushed
		delete(p.freeSet, id)

		buf := make([]byte, p.pageSize)
		if err := p.admit(&frame{id: id, buf: buf, dirty: true}); err != nil {
			return InvalidPageID, nil, err
		}
		if err := p.journal.markDirty(id, buf); err != nil {
			return InvalidPageID, nil, err
		}
		return id, buf, nil
	}

	// Head page itself is exhausted: it becomes the allocated page.
	prev := head.Prev()
	p.root.FreePageHead = prev
	p.dirty0 = true
	if prev != InvalidPageID {
		p.Pin(prev)
		defer p.Unpin(prev)
		prevBuf, err := p.getRaw(prev)
		if err != nil {
			return InvalidPageID, nil, err
		}
		prevPre := make([]byte, len(prevBuf))
		copy(prevPre, prevBuf)
		if err := p.journal.markDirty(prev, prevPre); err != nil {
			return InvalidPageID, nil, err
		}
		WrapFreeListPage(prevBuf).SetNext(InvalidPageID)
		if f := p.cache.lookup(prev); f != nil {
			f.dirty = true
		}
	}

	delete(p.freeSet, headID)
	buf := make([]byte, p.pageSize)
	if err := p.admit(&frame{id: headID, buf: buf, dirty: true}); err != nil {
		return InvalidPageID, nil, err
	}
	if err := p.journal.markDirty(headID, headPre); err != nil {
		return InvalidPageID, nil, err
	}
	return headID, buf, nil
}

// Delete returns id to the free-list (spec.md §4.1). It journals id's
// current contents, then either pushes id onto the existing head
// free-list page or, if the head is full or absent, turns id itself into
// the new head.
func (p *Pager) Delete(id PageID) error {
	if id == RootPageID {
		return fmt.Errorf("pager: cannot free the root page")
	}
	cur, err := p.getRaw(id)
	if err != nil {
		return err
	}
	curPre := make([]byte, len(cur))
	copy(curPre, cur)
	if err := p.journal.markDirty(id, curPre); err != nil {
		return err
	}
	p.freeSet[id] = struct{}{}

	if p.root.FreePageHead != InvalidPageID {
		headID := p.root.FreePageHead
		p.Pin(headID)
		defer p.Unpin(headID)
		headBuf, err := p.getRaw(headID)
		if err != nil {
			return err
		}
		headPre := make([]byte, len(headBuf))
		copy(headPre, headBuf)
		head := WrapFreeListPage(headBuf)
		if head.Push(id) {
			if f := p.cache.lookup(headID); f != nil {
				f.dirty = true
			}
			if err := p.journal.markDirty(headID, headPre); err != nil {
				return err
			}
			newBuf := make([]byte, p.pageSize)
			if err := p.admit(&frame{id: id, buf: newBuf, dirty: true}); err != nil {
				return err
			}
			return nil
		}
		// Head is full: id becomes the new head, chained in front of it.
		newHeadBuf := make([]byte, p.pageSize)
		InitFreeListPage(newHeadBuf, id)
		newHead := WrapFreeListPage(newHeadBuf)
		newHead.SetPrev(headID)
		head.SetNext(id)
		if f := p.cache.lookup(headID); f != nil {
			f.dirty = true
		}
		if err := p.journal.markDirty(headID, headPre); err != nil {
			return err
		}
		if err := p.admit(&frame{id: id, buf: newHeadBuf, dirty: true}); err != nil {
			return err
		}
		p.root.FreePageHead = id
		p.dirty0 = true
		return nil
	}

	// No free-list yet: id becomes the first free-list page.
	newHeadBuf := make([]byte, p.pageSize)
	InitFreeListPage(newHeadBuf, id)
	if err := p.admit(&frame{id: id, buf: newHeadBuf, dirty: true}); err != nil {
		return err
	}
	p.root.FreePageHead = id
	p.dirty0 = true
	return nil
}

// Begin starts a transaction: the root page's pre-image is captured so
// Rollback can restore it even if no other page is ever touched. A Begin
// while a transaction is already active is a no-op.
func (p *Pager) Begin() error {
	if p.inTx {
		return nil
	}
	rootPre := MarshalRootPage(&p.root, p.pageSize)
	if err := p.journal.begin(rootPre); err != nil {
		return err
	}
	p.inTx = true
	p.dirty0 = false
	return nil
}

// Commit flushes every dirty page (including the root) to the data file,
// fsyncs it, then discards the journal. Per spec.md §4.1 this is the
// point a transaction becomes durable. Outside a transaction it is a
// no-op.
func (p *Pager) Commit() error {
	if !p.inTx {
		return nil
	}
	for _, f := range p.cache.dirtyFrames() {
		if err := p.flushFrame(f); err != nil {
			return err
		}
		f.dirty = false
	}
	if p.dirty0 {
		if err := p.writeRootToFile(); err != nil {
			return err
		}
	}
	if err := p.f.Sync(); err != nil {
		return fmt.Errorf("pager: fsync data file: %w", err)
	}
	if err := p.journal.commit(); err != nil {
		return err
	}
	p.stats.Commits++
	p.inTx = false
	p.dirty0 = false
	return nil
}

// Rollback discards every change made since Begin: the journal is
// replayed back onto the data file, the in-memory cache is dropped (its
// contents may no longer match disk), and the root page is re-read.
// Outside a transaction it is a no-op.
func (p *Pager) Rollback() error {
	if !p.inTx {
		return nil
	}
	if err := p.journal.rollback(p.f); err != nil {
		return err
	}
	p.cache.clear()
	buf := make([]byte, p.pageSize)
	if _, err := p.f.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("pager: reread root page: %w", err)
	}
	p.root = UnmarshalRootPage(buf)
	p.freeSet = make(map[PageID]struct{})
	if err := p.reconstructFreeSet(); err != nil {
		return err
	}
	p.stats.Rollbacks++
	p.inTx = false
	p.dirty0 = false
	return nil
}

// Sync fsyncs the data file without ending a transaction.
func (p *Pager) Sync() error {
	if err := p.f.Sync(); err != nil {
		return fmt.Errorf("pager: fsync: %w", err)
	}
	return nil
}

// Stats returns a snapshot of pager counters.
func (p *Pager) Stats() Stats {
	s := p.stats
	s.CachedPages = p.cache.len()
	s.TotalPages = int(p.root.PageCounter)
	s.FreePages = len(p.freeSet)
	return s
}

// Close flushes nothing implicitly (an open transaction should already
// have been committed or rolled back) and releases the file lock.
func (p *Pager) Close() error {
	if err := unlockFile(p.lock); err != nil {
		return err
	}
	return p.f.Close()
}
