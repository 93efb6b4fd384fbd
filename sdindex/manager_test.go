package sdindex_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmowehhuk/sdstorage/pathutil"
	"github.com/danmowehhuk/sdstorage/sdfs"
	"github.com/danmowehhuk/sdstorage/sdindex"
	"github.com/danmowehhuk/sdstorage/txn"
)

func newTestManager(t *testing.T) (*sdindex.Manager, *sdfs.Mock, *pathutil.Helper) {
	t.Helper()

	fs := sdfs.NewMock(256)
	paths, err := pathutil.New("/DATA", 0)
	require.NoError(t, err)

	require.True(t, fs.Mkdir(paths.Root()))
	require.True(t, fs.Mkdir(paths.WorkDir()))
	require.True(t, fs.Mkdir(paths.IdxDir()))

	txns := txn.NewManager(fs, paths, nil, nil)
	idx := sdindex.NewManager(fs, paths, txns)

	return idx, fs, paths
}

func readIndexBytes(t *testing.T, fs *sdfs.Mock, paths *pathutil.Helper, name string) string {
	t.Helper()

	idxPath, err := paths.IndexPath(name)
	require.NoError(t, err)

	rc, err := fs.OpenIndexRead(idxPath)
	require.NoError(t, err)

	defer rc.Close()

	buf := make([]byte, 4096)
	n, _ := rc.Read(buf)

	return string(buf[:n])
}

// Scenario A — fresh upsert ordering.
func TestUpsert_ScenarioA_FreshUpsertOrdering(t *testing.T) {
	idx, fs, paths := newTestManager(t)

	require.NoError(t, idx.Upsert("fruit", "banana", "y", nil))
	require.NoError(t, idx.Upsert("fruit", "apple", "r", nil))
	require.NoError(t, idx.Upsert("fruit", "cherry", "r", nil))
	require.NoError(t, idx.Upsert("fruit", "banana", "g", nil))

	assert.Equal(t, "apple=r\nbanana=g\ncherry=r\n", readIndexBytes(t, fs, paths, "fruit"))
}

// Scenario E — rename to existing key.
func TestRename_ScenarioE_ToExistingKeyFailsUnchanged(t *testing.T) {
	idx, fs, paths := newTestManager(t)

	require.NoError(t, idx.Upsert("greek", "alpha", "1", nil))
	require.NoError(t, idx.Upsert("greek", "beta", "2", nil))

	before := readIndexBytes(t, fs, paths, "greek")

	err := idx.Rename("greek", "alpha", "beta", nil)
	require.ErrorIs(t, err, sdindex.ErrKeyExists)

	assert.Equal(t, before, readIndexBytes(t, fs, paths, "greek"))
}

func TestRename_MissingOldKeyFails(t *testing.T) {
	idx, _, _ := newTestManager(t)

	require.NoError(t, idx.Upsert("greek", "alpha", "1", nil))

	err := idx.Rename("greek", "gamma", "delta", nil)
	require.ErrorIs(t, err, sdindex.ErrNotFound)
}

func TestRename_ReordersIntoSortPosition(t *testing.T) {
	idx, fs, paths := newTestManager(t)

	require.NoError(t, idx.Upsert("letters", "a", "1", nil))
	require.NoError(t, idx.Upsert("letters", "m", "2", nil))
	require.NoError(t, idx.Upsert("letters", "z", "3", nil))

	require.NoError(t, idx.Rename("letters", "a", "n", nil))

	assert.Equal(t, "m=2\nn=1\nz=3\n", readIndexBytes(t, fs, paths, "letters"))
}

// Scenario F — prefix search with trie fallback.
func TestPrefixSearch_ScenarioF_TrieFallback(t *testing.T) {
	idx, _, _ := newTestManager(t)

	// Each key is prefix+char+"x": longer than prefix+char, so none of
	// them is an exact match for its own trie continuation, and every
	// trie entry's value must come back empty.
	suffixes := "abcdefghijkl"
	for _, c := range suffixes {
		require.NoError(t, idx.Upsert("words", "app"+string(c)+"x", "v", nil))
	}

	result, err := idx.PrefixSearch("words", "app")
	require.NoError(t, err)

	require.True(t, result.TrieMode)
	assert.Empty(t, result.Matches)
	require.Len(t, result.Trie, len(suffixes))

	seen := make(map[string]string, len(result.Trie))
	for _, e := range result.Trie {
		seen[e.Key] = e.Value
	}

	for _, c := range suffixes {
		v, ok := seen[string(c)]
		require.True(t, ok, "missing trie entry for %q", c)
		assert.Equal(t, "", v)
	}
}

func TestPrefixSearch_UnderCapReturnsFullMatches(t *testing.T) {
	idx, _, _ := newTestManager(t)

	require.NoError(t, idx.Upsert("words", "apple", "1", nil))
	require.NoError(t, idx.Upsert("words", "apricot", "2", nil))
	require.NoError(t, idx.Upsert("words", "banana", "3", nil))

	result, err := idx.PrefixSearch("words", "ap")
	require.NoError(t, err)

	require.False(t, result.TrieMode)
	assert.Empty(t, result.Trie)
	assert.ElementsMatch(t, []sdindex.Entry{
		{Key: "apple", Value: "1"},
		{Key: "apricot", Value: "2"},
	}, result.Matches)
}

func TestPrefixSearch_ExactKeyPopulatesTrieValue(t *testing.T) {
	idx, _, _ := newTestManager(t)

	// "appa" is exactly prefix+"a": its trie entry must carry its value.
	require.NoError(t, idx.Upsert("words", "appa", "exact-a", nil))
	// "appbx" only shares the next character "b" with a longer key: its
	// trie entry must have an empty value.
	require.NoError(t, idx.Upsert("words", "appbx", "longer-b", nil))

	// Pad past the 10-match cap with distinct continuation characters so
	// trie mode engages.
	for _, c := range "cdefghijk" {
		require.NoError(t, idx.Upsert("words", "app"+string(c), "v", nil))
	}

	result, err := idx.PrefixSearch("words", "app")
	require.NoError(t, err)
	require.True(t, result.TrieMode)

	seen := make(map[string]string, len(result.Trie))
	for _, e := range result.Trie {
		seen[e.Key] = e.Value
	}

	v, ok := seen["a"]
	require.True(t, ok)
	assert.Equal(t, "exact-a", v)

	v, ok = seen["b"]
	require.True(t, ok)
	assert.Equal(t, "", v)
}

func TestRoundTrip_UpsertThenLookup(t *testing.T) {
	idx, _, _ := newTestManager(t)

	require.NoError(t, idx.Upsert("kv", "key1", "value1", nil))

	v, ok, err := idx.Lookup("kv", "key1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "value1", v)
}

func TestLookup_MissingKeyNotFound(t *testing.T) {
	idx, _, _ := newTestManager(t)

	_, ok, err := idx.Lookup("kv", "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemove_DeletesKeyAndIsIdempotent(t *testing.T) {
	idx, fs, paths := newTestManager(t)

	require.NoError(t, idx.Upsert("kv", "a", "1", nil))
	require.NoError(t, idx.Upsert("kv", "b", "2", nil))

	require.NoError(t, idx.Remove("kv", "a", nil))
	assert.Equal(t, "b=2\n", readIndexBytes(t, fs, paths, "kv"))

	// Removing an already-absent key is a no-op, not an error.
	require.NoError(t, idx.Remove("kv", "a", nil))
	assert.Equal(t, "b=2\n", readIndexBytes(t, fs, paths, "kv"))
}

func TestMutate_WithExplicitTransactionDoesNotAutoCommit(t *testing.T) {
	fs := sdfs.NewMock(256)
	paths, err := pathutil.New("/DATA", 0)
	require.NoError(t, err)

	require.True(t, fs.Mkdir(paths.Root()))
	require.True(t, fs.Mkdir(paths.WorkDir()))
	require.True(t, fs.Mkdir(paths.IdxDir()))

	txns := txn.NewManager(fs, paths, nil, nil)
	idx := sdindex.NewManager(fs, paths, txns)

	idxPath, err := paths.IndexPath("kv")
	require.NoError(t, err)

	tx, err := txns.Begin(idxPath)
	require.NoError(t, err)

	require.NoError(t, idx.Upsert("kv", "a", "1", tx))

	// Not committed yet: the index file itself has not been written.
	assert.False(t, fs.Exists(idxPath))

	require.NoError(t, txns.Commit(tx))
	assert.Equal(t, "a=1\n", readIndexBytes(t, fs, paths, "kv"))
}
