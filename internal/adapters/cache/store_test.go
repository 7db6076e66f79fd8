package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore runs the behavior every Store backend must share. Keys are
// scoped by the subtest so backends with persistent state can be reused.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("Miss on unknown key", func(t *testing.T) {
		_, err := store.Get(ctx, "nope")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("Set overwrites", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "streak:h1", []byte("3"), time.Minute))
		require.NoError(t, store.Set(ctx, "streak:h1", []byte("4"), time.Minute))

		val, err := store.Get(ctx, "streak:h1")
		require.NoError(t, err)
		assert.Equal(t, []byte("4"), val)
	})

	t.Run("SetNX only writes once", func(t *testing.T) {
		key := "reminder:u1:2024-03-10"
		first, err := store.SetNX(ctx, key, []byte("1"), time.Hour)
		require.NoError(t, err)
		second, err := store.SetNX(ctx, key, []byte("2"), time.Hour)
		require.NoError(t, err)

		assert.True(t, first)
		assert.False(t, second)
		val, _ := store.Get(ctx, key)
		assert.Equal(t, []byte("1"), val, "SetNX must not overwrite")
	})

	t.Run("One reminder claim wins under contention", func(t *testing.T) {
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.SetNX(ctx, "reminder:u2:2024-03-10", []byte("sent"), time.Hour)
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("Delete frees the key", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "gone", []byte("x"), time.Minute))
		require.NoError(t, store.Delete(ctx, "gone"))
		require.NoError(t, store.Delete(ctx, "never-set"), "deleting a missing key is not an error")

		_, err := store.Get(ctx, "gone")
		assert.ErrorIs(t, err, ErrCacheMiss)

		ok, err := store.SetNX(ctx, "gone", []byte("y"), time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Entries expire", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Second))
		ok, err := store.SetNX(ctx, "short-claim", []byte("x"), time.Second)
		require.NoError(t, err)
		require.True(t, ok)

		time.Sleep(2100 * time.Millisecond)

		_, err = store.Get(ctx, "short")
		assert.ErrorIs(t, err, ErrCacheMiss)
		ok, err = store.SetNX(ctx, "short-claim", []byte("again"), time.Second)
		require.NoError(t, err)
		assert.True(t, ok, "an expired claim can be taken again")
	})
}
