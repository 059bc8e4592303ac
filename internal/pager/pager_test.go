package pager

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
)

func hashFile(t *testing.T, path string) [32]byte {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return sha256.Sum256(b)
}

func openTestPager(t *testing.T) (*Pager, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	p, err := Open(path, Options{PageSize: 512, CacheCapacity: 8})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, path
}

func TestRollbackRestoresFileBytes(t *testing.T) {
	p, path := openTestPager(t)

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	id, buf, err := p.NewPage()
	if err != nil {
		t.Fatal(err)
	}
	buf[0] = 0xAB
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}
	before := hashFile(t, path)

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	wbuf, err := p.GetForWrite(id)
	if err != nil {
		t.Fatal(err)
	}
	wbuf[0] = 0xFF
	if err := p.Rollback(); err != nil {
		t.Fatal(err)
	}

	after := hashFile(t, path)
	if before != after {
		t.Fatalf("rollback did not restore original file bytes")
	}
}

func TestCommitChangesFileBytes(t *testing.T) {
	p, path := openTestPager(t)

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	id, buf, err := p.NewPage()
	if err != nil {
		t.Fatal(err)
	}
	buf[0] = 1
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}
	before := hashFile(t, path)

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	wbuf, err := p.GetForWrite(id)
	if err != nil {
		t.Fatal(err)
	}
	wbuf[0] = 2
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}

	after := hashFile(t, path)
	if before == after {
		t.Fatalf("commit should have changed file bytes")
	}
}

func TestFreeListAllocationReuse(t *testing.T) {
	p, _ := openTestPager(t)

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	id1, _, err := p.NewPage()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(id1); err != nil {
		t.Fatal(err)
	}
	id2, _, err := p.NewPage()
	if err != nil {
		t.Fatal(err)
	}
	if id2 != id1 {
		t.Fatalf("expected free-list reuse of page %d, got %d", id1, id2)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestCrashRecoveryReopenMatchesCleanRollback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	p, err := Open(path, Options{PageSize: 512})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	id, buf, err := p.NewPage()
	if err != nil {
		t.Fatal(err)
	}
	buf[0] = 7
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}
	clean := hashFile(t, path)

	// Simulate a crash mid-transaction: begin, dirty a page, leave the
	// journal behind without committing or rolling back.
	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	wbuf, err := p.GetForWrite(id)
	if err != nil {
		t.Fatal(err)
	}
	wbuf[0] = 99
	if err := p.flushFrame(p.cache.lookup(id)); err != nil {
		t.Fatal(err)
	}
	p.f.Close() // drop the handle without committing or rolling back

	p2, err := Open(path, Options{PageSize: 512})
	if err != nil {
		t.Fatalf("reopen with stale journal: %v", err)
	}
	defer p2.Close()

	recovered := hashFile(t, path)
	if recovered != clean {
		t.Fatalf("recovery after crash did not reproduce the clean-rollback bytes")
	}
}

func TestGetRefusesFreePage(t *testing.T) {
	p, _ := openTestPager(t)

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	id, _, err := p.NewPage()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(id); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}

	if _, err := p.Get(id); err == nil {
		t.Fatalf("Get(%d) should refuse a page on the free-list", id)
	}
}

func TestFreeSetReconstructedOnReopen(t *testing.T) {
	p, path := openTestPager(t)

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	ids := make([]PageID, 3)
	for i := range ids {
		id, _, err := p.NewPage()
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}
	if err := p.Delete(ids[0]); err != nil {
		t.Fatal(err)
	}
	if err := p.Delete(ids[1]); err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}
	want := p.Stats().FreePages
	p.Close()

	p2, err := Open(path, Options{PageSize: 512, CacheCapacity: 8})
	if err != nil {
		t.Fatal(err)
	}
	defer p2.Close()

	if got := p2.Stats().FreePages; got != want {
		t.Fatalf("FreePages after reopen = %d, want %d", got, want)
	}
	if _, err := p2.Get(ids[0]); err == nil {
		t.Fatalf("Get(%d) should refuse a free page after reopen", ids[0])
	}
	if _, err := p2.Get(ids[2]); err != nil {
		t.Fatalf("Get(%d) on a still-used page: %v", ids[2], err)
	}
}

func TestNewPageOutsideTransactionReturnsInvalidPageID(t *testing.T) {
	p, _ := openTestPager(t)

	id, buf, err := p.NewPage()
	if err != nil {
		t.Fatalf("NewPage outside a transaction should not error: %v", err)
	}
	if id != InvalidPageID {
		t.Fatalf("NewPage outside a transaction = %d, want InvalidPageID", id)
	}
	if buf != nil {
		t.Fatalf("NewPage outside a transaction should return a nil buffer")
	}
}

func TestPageCounterInvariant(t *testing.T) {
	p, _ := openTestPager(t)

	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	var ids []PageID
	for i := 0; i < 5; i++ {
		id, _, err := p.NewPage()
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	for _, id := range ids[:3] {
		if err := p.Delete(id); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}

	stats := p.Stats()
	if stats.TotalPages != int(p.root.PageCounter) {
		t.Fatalf("TotalPages should track the page counter")
	}
}
