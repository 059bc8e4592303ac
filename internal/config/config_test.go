package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	opts, err := Load(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if opts != Defaults() {
		t.Fatalf("got %+v, want defaults %+v", opts, Defaults())
	}
}

func TestLoadOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keller.yaml")
	if err := Save(path, Options{PageSize: 8192, LogLevel: "debug"}); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if opts.PageSize != 8192 {
		t.Fatalf("page size = %d, want 8192", opts.PageSize)
	}
	if opts.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", opts.LogLevel)
	}
	if opts.DataPath != Defaults().DataPath {
		t.Fatalf("data path = %q, want default %q", opts.DataPath, Defaults().DataPath)
	}
}

func TestPagerOptionsProjection(t *testing.T) {
	opts := Options{PageSize: 4096, CacheCapacity: 64}
	po := opts.PagerOptions()
	if po.PageSize != 4096 || po.CacheCapacity != 64 {
		t.Fatalf("unexpected projection: %+v", po)
	}
}
