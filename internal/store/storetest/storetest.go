// Package storetest provides test functions to verify a Store
// implementation satisfies the interface in package store.
package storetest

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/osbuild/preseed-composer/internal/store"
	"github.com/osbuild/preseed-composer/internal/test"
)

type MakeStore func() (s store.Store, stop func(), err error)

func TestDbURL() string {
	host := os.Getenv("PRESEED_TEST_DB_HOST")
	if host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("postgres://postgres:foobar@%s:5432/preseedcomposer", host)
}

func TestStore(t *testing.T, makeStore MakeStore) {
	wrap := func(f func(t *testing.T, s store.Store)) func(*testing.T) {
		s, stop, err := makeStore()
		require.NoError(t, err)
		return func(t *testing.T) {
			defer stop() // use defer because f() might call testing.T.FailNow()
			f(t, s)
		}
	}

	t.Run("not-found", wrap(testNotFound))
	t.Run("insert-get", wrap(testInsertGet))
	t.Run("identifier-taken", wrap(testIdentifierTaken))
	t.Run("save", wrap(testSave))
	t.Run("concurrent-save", wrap(testConcurrentSave))
}

func newPreseed(hashID, content string) *store.Preseed {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &store.Preseed{
		ID:        uuid.New(),
		HashID:    hashID,
		Name:      "web01",
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func testNotFound(t *testing.T, s store.Store) {
	exists, err := s.Exists(context.Background(), "aaaaaaaaaaaa")
	require.NoError(t, err)
	require.False(t, exists)

	_, err = s.Get(context.Background(), "aaaaaaaaaaaa")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testInsertGet(t *testing.T, s store.Store) {
	p := newPreseed("AbCdEf123456", "d-i debian-installer/locale string en_US.UTF-8\n")
	require.NoError(t, s.Insert(context.Background(), p))

	exists, err := s.Exists(context.Background(), p.HashID)
	require.NoError(t, err)
	require.True(t, exists)

	got, err := s.Get(context.Background(), p.HashID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, p.HashID, got.HashID)
	require.Equal(t, p.Name, got.Name)
	require.Equal(t, p.Content, got.Content)
	require.True(t, p.CreatedAt.Equal(got.CreatedAt))
	require.True(t, p.UpdatedAt.Equal(got.UpdatedAt))

	// identifiers are case sensitive
	exists, err = s.Exists(context.Background(), "abcdef123456")
	require.NoError(t, err)
	require.False(t, exists)
}

func testIdentifierTaken(t *testing.T, s store.Store) {
	first := newPreseed("takentaken12", "first")
	require.NoError(t, s.Insert(context.Background(), first))

	second := newPreseed("takentaken12", "second")
	err := s.Insert(context.Background(), second)
	require.ErrorIs(t, err, store.ErrIdentifierTaken)

	got, err := s.Get(context.Background(), "takentaken12")
	require.NoError(t, err)
	require.Equal(t, "first", got.Content)
}

func testSave(t *testing.T, s store.Store) {
	p, err := store.Save(context.Background(), s, "web01", "content", store.DefaultMaxAttempts)
	require.NoError(t, err)
	require.Len(t, p.HashID, store.IdentifierLength)

	got, err := s.Get(context.Background(), p.HashID)
	require.NoError(t, err)
	// the database may round timestamps
	require.Empty(t, cmp.Diff(p, got, test.IgnoreDates()))
}

func testConcurrentSave(t *testing.T, s store.Store) {
	const writers = 20

	var wg sync.WaitGroup
	ids := make([]string, writers)
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := store.Save(context.Background(), s, "web01", fmt.Sprintf("content %d", i), store.DefaultMaxAttempts)
			errs[i] = err
			if err == nil {
				ids[i] = p.HashID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		require.False(t, seen[ids[i]], "identifier %s assigned twice", ids[i])
		seen[ids[i]] = true

		got, err := s.Get(context.Background(), ids[i])
		require.NoError(t, err)
		expected := &store.Preseed{
			HashID:  ids[i],
			Name:    "web01",
			Content: fmt.Sprintf("content %d", i),
		}
		require.Empty(t, cmp.Diff(expected, got, test.IgnoreDates(), test.IgnoreUuids()))
	}
}
