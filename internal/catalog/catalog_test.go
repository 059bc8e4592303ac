package catalog

import (
	"path/filepath"
	"testing"

	"github.com/kellerstore/kellerstore/internal/btree"
	"github.com/kellerstore/kellerstore/internal/pager"
	"github.com/kellerstore/kellerstore/internal/types"
)

func openTestPager(t *testing.T) *pager.Pager {
	t.Helper()
	dir := t.TempDir()
	p, err := pager.Open(filepath.Join(dir, "cat.db"), pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Commit() })
	return p
}

func TestOpenOnEmptyFileCreatesMasterTree(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.TableNames()) != 0 {
		t.Fatalf("expected no tables on a fresh database")
	}
}

func TestCreateTableAppearsAndSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cat.db")

	p, err := pager.Open(path, pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	c, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	cols := []Column{
		{Name: "id", Type: types.U32()},
		{Name: "name", Type: types.Char(32)},
	}
	tbl, err := c.CreateTable("users", cols, types.U32())
	if err != nil {
		t.Fatal(err)
	}
	if tbl.RootPage == pager.InvalidPageID {
		t.Fatalf("expected a real root page for the new table")
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	p2, err := pager.Open(path, pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatal(err)
	}
	defer p2.Close()
	c2, err := Open(p2)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := c2.Table("users")
	if !ok {
		t.Fatalf("expected users table to survive reopen")
	}
	if len(got.Columns) != 2 || got.Columns[0].Name != "id" || got.Columns[1].Name != "name" {
		t.Fatalf("column descriptors did not round-trip: %+v", got.Columns)
	}
	if got.RootPage != tbl.RootPage {
		t.Fatalf("root page mismatch: got %d want %d", got.RootPage, tbl.RootPage)
	}
}

func TestCreateTableRejectsDuplicateName(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	cols := []Column{{Name: "id", Type: types.U32()}}
	if _, err := c.CreateTable("widgets", cols, types.U32()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateTable("widgets", cols, types.U32()); err == nil {
		t.Fatalf("expected duplicate table creation to fail")
	}
}

func TestAddIndexPersistsOnDescriptor(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	cols := []Column{{Name: "id", Type: types.U32()}, {Name: "email", Type: types.Char(64)}}
	if _, err := c.CreateTable("accounts", cols, types.U32()); err != nil {
		t.Fatal(err)
	}
	idxTree, err := btree.Create(p, types.Char(64), 4, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddIndex("accounts", Index{Name: "by_email", Column: "email", RootPage: idxTree.RootPage}); err != nil {
		t.Fatal(err)
	}
	tbl, ok := c.Table("accounts")
	if !ok {
		t.Fatal("table missing")
	}
	if len(tbl.Indexes) != 1 || tbl.Indexes[0].Name != "by_email" {
		t.Fatalf("index descriptor not recorded: %+v", tbl.Indexes)
	}
}

func TestTableNamesSorted(t *testing.T) {
	p := openTestPager(t)
	c, err := Open(p)
	if err != nil {
		t.Fatal(err)
	}
	cols := []Column{{Name: "id", Type: types.U32()}}
	for _, name := range []string{"zebra", "apple", "mango"} {
		if _, err := c.CreateTable(name, cols, types.U32()); err != nil {
			t.Fatal(err)
		}
	}
	names := c.TableNames()
	want := []string{"apple", "mango", "zebra"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("TableNames() = %v, want %v", names, want)
		}
	}
}
