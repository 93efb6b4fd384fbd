package txn_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danmowehhuk/sdstorage/sdfs"
	"github.com/danmowehhuk/sdstorage/txn"
)

// TestProperty_LockExclusivity_NoTwoTransactionsHoldSamePath hammers a
// small pool of paths with concurrent Begin/Commit cycles across many
// goroutines and asserts, at a wall-clock-instant granularity, that the
// lock table never lets two live transactions hold the same path at once
// — the invariant the spin-wait acquisition in acquireLock exists for.
func TestProperty_LockExclusivity_NoTwoTransactionsHoldSamePath(t *testing.T) {
	fs := sdfs.NewMock(256)
	paths := newHelper(t)
	setupWorkDir(t, fs, paths)

	mgr := txn.NewManager(fs, paths, nil, nil)

	targets := []string{
		paths.Root() + "/A.TXT",
		paths.Root() + "/B.TXT",
		paths.Root() + "/C.TXT",
	}

	var (
		mu     sync.Mutex
		held   = make(map[string]bool)
		failed bool
	)

	mark := func(path string, want bool) {
		mu.Lock()
		defer mu.Unlock()

		if want && held[path] {
			failed = true
		}

		held[path] = want
	}

	const workersPerTarget = 6

	var wg sync.WaitGroup

	for _, target := range targets {
		for i := 0; i < workersPerTarget; i++ {
			wg.Add(1)

			go func(target string) {
				defer wg.Done()

				for round := 0; round < 20; round++ {
					tx, err := mgr.Begin(target)
					require.NoError(t, err)

					mark(target, true)
					time.Sleep(time.Microsecond)
					mark(target, false)

					require.NoError(t, mgr.Commit(tx))
				}
			}(target)
		}
	}

	wg.Wait()

	require.False(t, failed, "two transactions held the same path concurrently")
}
