package pager

import "github.com/dustin/go-humanize"

// Stats is a point-in-time snapshot of pager activity, surfaced to
// callers for diagnostics and to internal/metrics for Prometheus export.
type Stats struct {
	CacheHits   int
	CacheMisses int
	Commits     int
	Rollbacks   int
	CachedPages int
	TotalPages  int
	FreePages   int
}

// String renders a human-readable summary, e.g. the one cmd/kellerdb
// prints on exit.
func (s Stats) String() string {
	return humanize.Comma(int64(s.CachedPages)) + "/" + humanize.Comma(int64(s.TotalPages)) +
		" pages cached, " + humanize.Comma(int64(s.FreePages)) + " free, " +
		humanize.Comma(int64(s.CacheHits)) + " hits/" +
		humanize.Comma(int64(s.CacheMisses)) + " misses, " +
		humanize.Comma(int64(s.Commits)) + " commits/" + humanize.Comma(int64(s.Rollbacks)) + " rollbacks"
}
