// Package blobstore stores byte streams too large for a single B+tree
// record as a chain of pager-owned pages, addressed by the page id of
// the chain's head (spec.md §4.3 "Blob store", grounded on the reference
// engine's blob.hpp/blob.cpp and tests/blob.hpp).
package blobstore

import (
	"encoding/binary"
	"fmt"

	"github.com/kellerstore/kellerstore/internal/pager"
)

// Header layout, present at the start of every chain page (head and
// continuation alike):
//
//	[0:4]  TotalSize — full blob length; only meaningful on the head page
//	[4:8]  Next      — next page in the chain, 0 if this is the last page
//	[8:12] ChunkSize — bytes of payload stored on this page
const (
	headerSize    = 12
	offTotalSize  = 0
	offNext       = 4
	offChunkSize  = 8
)

// Store writes and reads blob chains through a *pager.Pager.
type Store struct {
	p *pager.Pager
}

// New wraps p as a blob store.
func New(p *pager.Pager) *Store { return &Store{p: p} }

func (s *Store) capacity() int { return s.p.PageSize() - headerSize }

// Create writes data as a new chain of pages and returns the head page
// id. Empty input is rejected: an empty blob has no head page to
// identify it by (mirrors blob_create's "empty blob correctly rejected").
func (s *Store) Create(data []byte) (pager.PageID, error) {
	if len(data) == 0 {
		return pager.InvalidPageID, fmt.Errorf("blobstore: cannot create an empty blob")
	}

	cap := s.capacity()
	var pages []pager.PageID
	for off := 0; off < len(data); off += cap {
		end := off + cap
		if end > len(data) {
			end = len(data)
		}
		id, buf, err := s.p.NewPage()
		if err != nil {
			return pager.InvalidPageID, err
		}
		chunk := data[off:end]
		binary.LittleEndian.PutUint32(buf[offChunkSize:], uint32(len(chunk)))
		copy(buf[headerSize:], chunk)
		pages = append(pages, id)
	}

	// Second pass: link Next pointers and stamp TotalSize on the head.
	for i, id := range pages {
		buf, err := s.p.GetForWrite(id)
		if err != nil {
			return pager.InvalidPageID, err
		}
		var next pager.PageID
		if i+1 < len(pages) {
			next = pages[i+1]
		}
		binary.LittleEndian.PutUint32(buf[offNext:], uint32(next))
	}
	headBuf, err := s.p.GetForWrite(pages[0])
	if err != nil {
		return pager.InvalidPageID, err
	}
	binary.LittleEndian.PutUint32(headBuf[offTotalSize:], uint32(len(data)))

	return pages[0], nil
}

// Size returns the total blob length stored on the head page.
func (s *Store) Size(head pager.PageID) (int, error) {
	buf, err := s.p.Get(head)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(buf[offTotalSize:])), nil
}

// Page describes one page of a blob chain, mirroring the reference
// engine's blob_page{data,size,next}.
type Page struct {
	Data []byte
	Next pager.PageID
}

// ReadPage returns the chunk and next-pointer stored at id, without
// walking the rest of the chain.
func (s *Store) ReadPage(id pager.PageID) (Page, error) {
	buf, err := s.p.Get(id)
	if err != nil {
		return Page{}, err
	}
	chunkSize := binary.LittleEndian.Uint32(buf[offChunkSize:])
	next := pager.PageID(binary.LittleEndian.Uint32(buf[offNext:]))
	data := make([]byte, chunkSize)
	copy(data, buf[headerSize:headerSize+int(chunkSize)])
	return Page{Data: data, Next: next}, nil
}

// ReadFull walks the chain from head and concatenates every chunk.
func (s *Store) ReadFull(head pager.PageID) ([]byte, error) {
	total, err := s.Size(head)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, total)
	current := head
	for current != pager.InvalidPageID {
		pg, err := s.ReadPage(current)
		if err != nil {
			return nil, err
		}
		out = append(out, pg.Data...)
		current = pg.Next
	}
	if len(out) != total {
		return nil, fmt.Errorf("blobstore: chain length %d does not match recorded size %d", len(out), total)
	}
	return out, nil
}

// Delete frees every page in the chain starting at head.
func (s *Store) Delete(head pager.PageID) error {
	current := head
	for current != pager.InvalidPageID {
		pg, err := s.ReadPage(current)
		if err != nil {
			return err
		}
		next := pg.Next
		if err := s.p.Delete(current); err != nil {
			return err
		}
		current = next
	}
	return nil
}
