package pager

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// journalSuffix names the rollback journal next to its data file, e.g.
// "accounts.db" -> "accounts.db-journal" (spec.md §4.1 "Atomic commit").
const journalSuffix = "-journal"

// journal is an undo log: before a page is first dirtied within a
// transaction, its pre-image is appended here. Committing deletes the
// journal outright (the data file already holds the new values). Rolling
// back — or recovering after a crash that left a journal behind — replays
// every pre-image back onto the data file in order, then deletes the
// journal.
//
// Journal file format:
//
//	entry 0:      [pageSize]              — pre-image of the root page (id 0)
//	entry 1..N:   [PageID:4][pageSize]     — pre-image of page PageID
//
// Every append is followed by fsync before the corresponding data-file
// write proceeds, so a crash can never observe a dirtied data page
// without its pre-image safely on disk (spec.md §7 "Crash during
// commit").
type journal struct {
	path     string
	pageSize int
	f        *os.File
	active   bool
	seen     map[PageID]bool
}

func journalPath(dataPath string) string { return dataPath + journalSuffix }

func newJournal(dataPath string, pageSize int) *journal {
	return &journal{path: journalPath(dataPath), pageSize: pageSize, seen: make(map[PageID]bool)}
}

// begin creates (truncating any stale journal) and opens the journal file
// for a fresh transaction, recording the root page's pre-image as entry 0.
func (j *journal) begin(rootPreImage []byte) error {
	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("pager: open journal: %w", err)
	}
	j.f = f
	j.active = true
	j.seen = make(map[PageID]bool)
	if _, err := j.f.Write(rootPreImage); err != nil {
		return fmt.Errorf("pager: write root pre-image: %w", err)
	}
	return j.sync()
}

// markDirty appends id's pre-image, unless id was already journaled this
// transaction (only the first pre-image before a page's first write
// matters for rollback).
func (j *journal) markDirty(id PageID, preImage []byte) error {
	if !j.active || id == RootPageID || j.seen[id] {
		return nil
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(id))
	if _, err := j.f.Write(hdr[:]); err != nil {
		return fmt.Errorf("pager: write journal entry header: %w", err)
	}
	if _, err := j.f.Write(preImage); err != nil {
		return fmt.Errorf("pager: write journal entry body: %w", err)
	}
	j.seen[id] = true
	return j.sync()
}

func (j *journal) sync() error {
	if err := j.f.Sync(); err != nil {
		return fmt.Errorf("pager: fsync journal: %w", err)
	}
	return nil
}

// commit discards the journal: the data file already holds every change.
func (j *journal) commit() error {
	if !j.active {
		return nil
	}
	j.active = false
	if err := j.f.Close(); err != nil {
		return fmt.Errorf("pager: close journal: %w", err)
	}
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pager: remove journal: %w", err)
	}
	return nil
}

// rollback replays every journaled pre-image back onto dataFile, then
// deletes the journal. Used both for an explicit ROLLBACK and, on open,
// for crash recovery when a stale journal is found.
func (j *journal) rollback(dataFile *os.File) error {
	if j.f == nil {
		f, err := os.Open(j.path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("pager: open journal for recovery: %w", err)
		}
		j.f = f
	}
	if _, err := j.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("pager: seek journal: %w", err)
	}

	rootImage := make([]byte, j.pageSize)
	if _, err := io.ReadFull(j.f, rootImage); err != nil {
		return fmt.Errorf("pager: read root pre-image: %w", err)
	}
	if _, err := dataFile.WriteAt(rootImage, 0); err != nil {
		return fmt.Errorf("pager: restore root page: %w", err)
	}

	hdr := make([]byte, 4)
	body := make([]byte, j.pageSize)
	for {
		if _, err := io.ReadFull(j.f, hdr); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("pager: read journal entry header: %w", err)
		}
		id := PageID(binary.LittleEndian.Uint32(hdr))
		if _, err := io.ReadFull(j.f, body); err != nil {
			return fmt.Errorf("pager: read journal entry body: %w", err)
		}
		off := int64(id) * int64(j.pageSize)
		if _, err := dataFile.WriteAt(body, off); err != nil {
			return fmt.Errorf("pager: restore page %d: %w", id, err)
		}
	}

	if err := dataFile.Sync(); err != nil {
		return fmt.Errorf("pager: fsync data file after rollback: %w", err)
	}
	if err := j.f.Close(); err != nil {
		return fmt.Errorf("pager: close journal: %w", err)
	}
	j.f = nil
	j.active = false
	if err := os.Remove(j.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pager: remove journal: %w", err)
	}
	return nil
}

// exists reports whether a journal file is present next to dataPath —
// the signal that the last session crashed mid-transaction and recovery
// must run before the data file is trusted (spec.md §7 "Crash recovery").
func journalExists(dataPath string) bool {
	_, err := os.Stat(journalPath(dataPath))
	return err == nil
}
