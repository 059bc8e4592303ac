package main

import (
	"fmt"

	"github.com/kellerstore/kellerstore/internal/config"
	"github.com/kellerstore/kellerstore/internal/pager"
)

// scenarioCrashRecovery reopens the data file left behind by the earlier
// scenarios, establishes a baseline byte via a committed transaction,
// then begins a second transaction, mutates the same page, and abandons
// it by closing the handle directly instead of calling Commit or
// Rollback — standing in for a process that dies mid-transaction.
// Reopening must reproduce the pre-begin byte (spec.md §8 scenario 3).
//
// This is a weaker check than internal/pager's own
// TestCrashRecoveryReopenMatchesCleanRollback: that test reaches the
// package-private flushFrame to force the dirty page onto disk before
// the simulated crash, so it also exercises the journal-replay-over-a
// partially-written-page path. Pager has no public equivalent — a
// GetForWrite'd page only leaves the process cache on Commit — so from
// here the "crash" can only abandon an in-memory mutation that never
// reached the data file. What this does still confirm from the public
// API: Open()'s stale-journal detection fires and the recovered file
// reads back exactly as it did before the abandoned transaction.
func scenarioCrashRecovery(opts config.Options) error {
	p, err := pager.Open(opts.DataPath, opts.PagerOptions())
	if err != nil {
		return err
	}

	if err := p.Begin(); err != nil {
		p.Close()
		return err
	}
	id, buf, err := p.NewPage()
	if err != nil {
		p.Close()
		return err
	}
	buf[0] = 'a'
	if err := p.Commit(); err != nil {
		p.Close()
		return err
	}

	if err := p.Begin(); err != nil {
		p.Close()
		return err
	}
	wbuf, err := p.GetForWrite(id)
	if err != nil {
		p.Close()
		return err
	}
	wbuf[0] = 'z'
	if err := p.Sync(); err != nil {
		p.Close()
		return err
	}

	// Simulate a crash: abandon the open transaction by closing the
	// handle directly, without Commit or Rollback. The rollback journal
	// is left on disk holding the pre-images written since Begin.
	if err := p.Close(); err != nil {
		return err
	}

	p2, err := pager.Open(opts.DataPath, opts.PagerOptions())
	if err != nil {
		return err
	}
	defer p2.Close()

	rbuf, err := p2.Get(id)
	if err != nil {
		return err
	}
	if rbuf[0] != 'a' {
		return fmt.Errorf("page %d byte 0 = %q after crash+reopen, want 'a'", id, rbuf[0])
	}
	fmt.Printf("page %d byte 0 = %q after crash+reopen, as expected\n", id, rbuf[0])
	return nil
}
