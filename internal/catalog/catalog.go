// Package catalog implements the master catalog: a B+tree at a fixed
// root page keyed by table name, whose records are marshaled table
// descriptors (spec.md §4.5, grounded on the reference engine's
// catalog.hpp/catalog.cpp plus the teacher's internal/storage/catalog.go
// for the Go struct/marshal shape).
package catalog

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/kellerstore/kellerstore/internal/btree"
	"github.com/kellerstore/kellerstore/internal/pager"
	"github.com/kellerstore/kellerstore/internal/types"
)

// NameSize bounds a table name to a fixed-width char key so the master
// catalog can be an ordinary fixed-key B+tree like every other tree in
// the database.
const NameSize = 64

// MasterRootPage is the fixed page id at which the master catalog's
// B+tree root lives. Page 0 is the pager's own root page (spec.md §6 "On-disk
// layout"), so the master catalog claims the next page deterministically.
const MasterRootPage pager.PageID = 1

// Column describes one column of a table: its name and its packed
// DataType descriptor.
type Column struct {
	Name string
	Type types.DataType
}

// Index describes a secondary index over a table: its own B+tree root
// page and the column it is keyed on.
type Index struct {
	Name     string
	Column   string
	RootPage pager.PageID
	Unique   bool
}

// Table is a table descriptor: everything the VM needs to open the
// table's own B+tree and interpret its rows.
type Table struct {
	Name       string
	Columns    []Column
	RootPage   pager.PageID
	RecordSize int
	Indexes    []Index
}

// Catalog owns the master B+tree and an in-memory map of bootstrapped
// table descriptors (spec.md §4.5: "a special result callback installs
// each table descriptor into an in-memory map").
type Catalog struct {
	p      *pager.Pager
	master *btree.Tree
	tables map[string]*Table
}

// Open opens (or, on a brand-new database, creates) the master catalog
// tree at MasterRootPage and bootstraps the in-memory table map by
// scanning every entry.
func Open(p *pager.Pager) (*Catalog, error) {
	existing := p.Stats().TotalPages > int(MasterRootPage)
	var master *btree.Tree
	var err error
	if existing {
		master, err = btree.Open(p, MasterRootPage, types.Char(NameSize), maxDescriptorSize)
	} else {
		master, err = btree.Create(p, types.Char(NameSize), maxDescriptorSize, true)
	}
	if err != nil {
		return nil, err
	}
	if master.RootPage != MasterRootPage {
		return nil, fmt.Errorf("catalog: master tree root page %d, want %d", master.RootPage, MasterRootPage)
	}

	c := &Catalog{p: p, master: master, tables: map[string]*Table{}}
	if err := c.bootstrap(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) bootstrap() error {
	cur := btree.NewCursor(c.master)
	ok, err := cur.First()
	if err != nil {
		return err
	}
	for ok {
		rec, err := cur.Record()
		if err != nil {
			return err
		}
		tbl, err := unmarshalTable(rec)
		if err != nil {
			return err
		}
		c.tables[tbl.Name] = tbl
		ok, err = cur.Next()
		if err != nil {
			return err
		}
	}
	return nil
}

// CreateTable allocates a new B+tree for the table, builds its
// descriptor, and appends the descriptor to the master catalog.
func (c *Catalog) CreateTable(name string, columns []Column, keyType types.DataType) (*Table, error) {
	if _, exists := c.tables[name]; exists {
		return nil, fmt.Errorf("catalog: table %q already exists", name)
	}
	recordSize := 0
	for _, col := range columns {
		recordSize += int(col.Type.TotalSize())
	}
	tree, err := btree.Create(c.p, keyType, recordSize, true)
	if err != nil {
		return nil, err
	}
	tbl := &Table{Name: name, Columns: columns, RootPage: tree.RootPage, RecordSize: recordSize}

	rec := marshalTable(tbl)
	if len(rec) > maxDescriptorSize {
		return nil, fmt.Errorf("catalog: descriptor for %q (%d bytes) exceeds max %d", name, len(rec), maxDescriptorSize)
	}
	cur := btree.NewCursor(c.master)
	ok, err := cur.Insert(nameKey(name), padDescriptor(rec))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("catalog: table %q already present in master tree", name)
	}

	c.tables[name] = tbl
	return tbl, nil
}

// AddIndex appends an index descriptor to an existing table's entry and
// rewrites its record in the master catalog.
func (c *Catalog) AddIndex(tableName string, idx Index) error {
	tbl, ok := c.tables[tableName]
	if !ok {
		return fmt.Errorf("catalog: table %q not found", tableName)
	}
	tbl.Indexes = append(tbl.Indexes, idx)

	rec := marshalTable(tbl)
	if len(rec) > maxDescriptorSize {
		return fmt.Errorf("catalog: descriptor for %q (%d bytes) exceeds max %d", tableName, len(rec), maxDescriptorSize)
	}
	cur := btree.NewCursor(c.master)
	found, err := cur.Seek(nameKey(tableName))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("catalog: table %q missing from master tree", tableName)
	}
	return cur.Update(padDescriptor(rec))
}

// Table returns the bootstrapped descriptor for name, if any.
func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// TableNames returns every known table name in sorted order.
func (c *Catalog) TableNames() []string {
	names := lo.Keys(c.tables)
	sort.Strings(names)
	return names
}

func nameKey(name string) []byte {
	b := make([]byte, NameSize)
	copy(b, name)
	return b
}
