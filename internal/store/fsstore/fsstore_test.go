package fsstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osbuild/preseed-composer/internal/store"
	"github.com/osbuild/preseed-composer/internal/store/fsstore"
	"github.com/osbuild/preseed-composer/internal/store/storetest"
)

func TestStoreInterface(t *testing.T) {
	storetest.TestStore(t, func() (store.Store, func(), error) {
		dir := t.TempDir()
		s, err := fsstore.New(dir)
		if err != nil {
			return nil, nil, err
		}
		stop := func() {
		}
		return s, stop, nil
	})
}

func TestNonExistant(t *testing.T) {
	s, err := fsstore.New("/non-existant-directory")
	require.Error(t, err)
	require.Nil(t, s)
}

func TestNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0600))

	s, err := fsstore.New(file)
	require.Error(t, err)
	require.Nil(t, s)
}

func TestStoreBadJSON(t *testing.T) {
	dir := t.TempDir()

	// Write a purposfully invalid JSON file into the store
	err := os.WriteFile(filepath.Join(dir, "AbCdEf123456.json"), []byte("{invalid json content"), 0600)
	require.NoError(t, err)

	s, err := fsstore.New(dir)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "AbCdEf123456")
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrNotFound)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := fsstore.New(dir)
	require.NoError(t, err)
	p, err := store.Save(context.Background(), s, "web01", "content", store.DefaultMaxAttempts)
	require.NoError(t, err)

	s, err = fsstore.New(dir)
	require.NoError(t, err)
	got, err := s.Get(context.Background(), p.HashID)
	require.NoError(t, err)
	require.Equal(t, p.ID, got.ID)
	require.Equal(t, "content", got.Content)
}
