package blobstore

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/kellerstore/kellerstore/internal/pager"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	p, err := pager.Open(filepath.Join(dir, "blob.db"), pager.Options{PageSize: 128})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Commit() })
	return New(p)
}

func TestCreateRejectsEmpty(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Create(nil); err == nil {
		t.Fatalf("expected error for empty blob")
	}
	if _, err := s.Create([]byte{}); err == nil {
		t.Fatalf("expected error for zero-length blob")
	}
}

func TestSinglePageRoundTrip(t *testing.T) {
	s := openTestStore(t)
	data := []byte("small blob that fits in one page")
	head, err := s.Create(data)
	if err != nil {
		t.Fatal(err)
	}
	size, err := s.Size(head)
	if err != nil {
		t.Fatal(err)
	}
	if size != len(data) {
		t.Fatalf("got size %d want %d", size, len(data))
	}
	pg, err := s.ReadPage(head)
	if err != nil {
		t.Fatal(err)
	}
	if pg.Next != pager.InvalidPageID {
		t.Fatalf("single-page blob should have no next page")
	}
	if !bytes.Equal(pg.Data, data) {
		t.Fatalf("page data mismatch")
	}
}

func TestMultiPageRoundTripAndChainLength(t *testing.T) {
	s := openTestStore(t)
	capacity := s.capacity()
	data := bytes.Repeat([]byte{'B'}, capacity*3)
	head, err := s.Create(data)
	if err != nil {
		t.Fatal(err)
	}
	full, err := s.ReadFull(head)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(full, data) {
		t.Fatalf("full read mismatch")
	}

	count := 0
	current := head
	for current != pager.InvalidPageID {
		pg, err := s.ReadPage(current)
		if err != nil {
			t.Fatal(err)
		}
		count++
		current = pg.Next
	}
	if count != 3 {
		t.Fatalf("expected 3-page chain, got %d", count)
	}
}

func TestBoundaryOneByteOverPage(t *testing.T) {
	s := openTestStore(t)
	capacity := s.capacity()
	data := bytes.Repeat([]byte{'D'}, capacity+1)
	head, err := s.Create(data)
	if err != nil {
		t.Fatal(err)
	}
	p1, err := s.ReadPage(head)
	if err != nil {
		t.Fatal(err)
	}
	if len(p1.Data) != capacity || p1.Next == pager.InvalidPageID {
		t.Fatalf("expected first page full and chained")
	}
	p2, err := s.ReadPage(p1.Next)
	if err != nil {
		t.Fatal(err)
	}
	if len(p2.Data) != 1 || p2.Next != pager.InvalidPageID {
		t.Fatalf("expected second page with exactly 1 trailing byte")
	}
}

func TestBinaryDataWithNullBytes(t *testing.T) {
	s := openTestStore(t)
	data := make([]byte, 200)
	for i := range data {
		data[i] = byte(i % 256)
	}
	head, err := s.Create(data)
	if err != nil {
		t.Fatal(err)
	}
	full, err := s.ReadFull(head)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(full, data) {
		t.Fatalf("binary round trip mismatch")
	}
}

func TestDeleteFreesAllPagesAndOthersSurvive(t *testing.T) {
	s := openTestStore(t)
	capacity := s.capacity()

	id1, err := s.Create([]byte("first blob"))
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.Create(bytes.Repeat([]byte{'X'}, capacity*2))
	if err != nil {
		t.Fatal(err)
	}
	id3, err := s.Create([]byte("third blob"))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(id2); err != nil {
		t.Fatal(err)
	}

	got1, err := s.ReadFull(id1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got1) != "first blob" {
		t.Fatalf("blob 1 corrupted after deleting blob 2")
	}
	got3, err := s.ReadFull(id3)
	if err != nil {
		t.Fatal(err)
	}
	if string(got3) != "third blob" {
		t.Fatalf("blob 3 corrupted after deleting blob 2")
	}
}
