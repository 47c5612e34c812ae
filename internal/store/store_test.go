package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "selections.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	savedAt := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	require.NoError(t, s.Save(ctx, Selection{
		Repository: "octo/hello",
		Branch:     "main",
		Paths:      []string{"src", "README.md"},
		SavedAt:    savedAt,
	}))

	sel, err := s.Load(ctx, "octo/hello", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "README.md"}, sel.Paths)
	assert.True(t, savedAt.Equal(sel.SavedAt))

	other, err := s.Load(ctx, "octo/hello", "dev")
	require.NoError(t, err)
	assert.Empty(t, other.Paths, "branches are stored separately")
}

func TestSaveReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, Selection{Repository: "r", Branch: "main", Paths: []string{"a"}}))
	require.NoError(t, s.Save(ctx, Selection{Repository: "r", Branch: "main", Paths: []string{"b", "c"}}))

	sel, err := s.Load(ctx, "r", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, sel.Paths)
}

func TestLoadMissingIsEmpty(t *testing.T) {
	s := openTestStore(t)

	sel, err := s.Load(context.Background(), "nobody/nothing", "main")

	require.NoError(t, err)
	assert.NotNil(t, sel.Paths)
	assert.Empty(t, sel.Paths)
}

func TestDeleteAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, Selection{Repository: "a/one", Branch: "main", Paths: []string{"x"}, SavedAt: base}))
	require.NoError(t, s.Save(ctx, Selection{Repository: "b/two", Branch: "main", Paths: []string{"y"}, SavedAt: base.Add(time.Hour)}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b/two", list[0].Repository, "most recent first")

	require.NoError(t, s.Delete(ctx, "b/two", "main"))
	require.NoError(t, s.Delete(ctx, "b/two", "main"))

	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a/one", list[0].Repository)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selections.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, Selection{Repository: "r", Branch: "main", Paths: []string{"a"}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	sel, err := s.Load(ctx, "r", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, sel.Paths)
}
