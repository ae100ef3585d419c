package lockfile

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sterna.lock")
	l := New(path)
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())
}

func TestWithLockReleasesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sterna.lock")

	err := WithLock(path, func() error { return assertErr })
	require.Error(t, err)

	// A fresh acquisition must succeed immediately: the prior WithLock
	// released the lock even though its function returned an error.
	l := New(path)
	acquired := make(chan struct{})
	go func() {
		require.NoError(t, l.Acquire())
		close(acquired)
	}()
	select {
	case <-acquired:
		require.NoError(t, l.Release())
	case <-time.After(2 * time.Second):
		t.Fatal("lock was not released after WithLock returned an error")
	}
}

func TestConcurrentAcquireSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sterna.lock")

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			require.NoError(t, WithLock(path, func() error {
				mu.Lock()
				order = append(order, n)
				mu.Unlock()
				time.Sleep(5 * time.Millisecond)
				return nil
			}))
		}(i)
	}
	wg.Wait()

	require.Len(t, order, 5)
}

var assertErr = &sentinelError{}

type sentinelError struct{}

func (*sentinelError) Error() string { return "boom" }
