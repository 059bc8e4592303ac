// Package pager implements KellerStore's page cache, free-list manager,
// and rollback-journal atomic commit over a single data file (spec.md
// §4.1). It is the lowest storage layer: the B+tree, ephemeral tree
// cursors never hold raw pointers into cached pages — only a PageID and
// an index — so the pager is free to evict and re-read pages between
// opcodes (spec.md §9's "raw pointer cursors on cached pages" note).
package pager

import "encoding/binary"

// DefaultPageSize is the page size in bytes used when Options.PageSize is
// zero. spec.md §3 calls this PAGE_SIZE and treats it as a compile-time
// constant; KellerStore allows internal/config to override it
// per-database at Open time, but a
// freshly-created data file bakes its chosen size into the root page so
// every subsequent open honors it.
const DefaultPageSize = 4096

// InvalidPageID is the reserved "null" page id. Page 0 is always the
// root page; a PageID of 0 is used as ground elsewhere.
const InvalidPageID PageID = 0

// PageID addresses a single page. 32-bit per spec.md §3.
type PageID uint32

// RootPageID is the fixed page holding the root page's own metadata.
const RootPageID PageID = 0

// ─── Root page ───────────────────────────────────────────────────────────
//
// Layout (spec.md §3 "Root page"):
//   [0:4]   PageCounter    — next page id to allocate
//   [4:8]   FreePageHead   — index of the most recent free-list page, 0 if none
//   [8:12]  PageSize       — page size this data file was created with
//   [12:28] InstanceID     — 16-byte UUID, diagnostics only (not load-bearing)
//   rest: padding

const (
	rootPageCounterOff  = 0
	rootFreeHeadOff     = 4
	rootPageSizeOff     = 8
	rootInstanceIDOff   = 12
	rootInstanceIDLen   = 16
)

// RootPage is the decoded contents of page 0.
type RootPage struct {
	PageCounter  PageID // next page id to allocate
	FreePageHead PageID // head of the free-list chain, 0 if none
	PageSize     uint32
	InstanceID   [16]byte
}

// MarshalRootPage encodes a RootPage into a zero-padded page-sized buffer.
func MarshalRootPage(r *RootPage, pageSize int) []byte {
	buf := make([]byte, pageSize)
	binary.LittleEndian.PutUint32(buf[rootPageCounterOff:], uint32(r.PageCounter))
	binary.LittleEndian.PutUint32(buf[rootFreeHeadOff:], uint32(r.FreePageHead))
	binary.LittleEndian.PutUint32(buf[rootPageSizeOff:], r.PageSize)
	copy(buf[rootInstanceIDOff:rootInstanceIDOff+rootInstanceIDLen], r.InstanceID[:])
	return buf
}

// UnmarshalRootPage decodes a RootPage from a page buffer.
func UnmarshalRootPage(buf []byte) RootPage {
	var r RootPage
	r.PageCounter = PageID(binary.LittleEndian.Uint32(buf[rootPageCounterOff:]))
	r.FreePageHead = PageID(binary.LittleEndian.Uint32(buf[rootFreeHeadOff:]))
	r.PageSize = binary.LittleEndian.Uint32(buf[rootPageSizeOff:])
	copy(r.InstanceID[:], buf[rootInstanceIDOff:rootInstanceIDOff+rootInstanceIDLen])
	return r
}
