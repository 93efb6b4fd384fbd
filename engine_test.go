package sdstorage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/record"
	"github.com/danmowehhuk/sdstorage/sdfs"
)

func openTestEngine(t *testing.T) *sdstorage.Engine {
	t.Helper()

	fs := sdfs.NewMock(256)

	e, err := sdstorage.Open(context.Background(), sdstorage.Config{
		RootDir: "DATA",
		FS:      fs,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Close() })

	return e
}

func TestOpen_CreatesWorkAndIndexDirs(t *testing.T) {
	fs := sdfs.NewMock(256)

	e, err := sdstorage.Open(context.Background(), sdstorage.Config{RootDir: "DATA", FS: fs})
	require.NoError(t, err)
	defer e.Close()

	assert.True(t, fs.IsDir("/DATA"))
	assert.True(t, fs.IsDir("/DATA/~WORK"))
	assert.True(t, fs.IsDir("/DATA/~IDX"))
}

func TestOpen_RejectsInvalidRoot(t *testing.T) {
	_, err := sdstorage.Open(context.Background(), sdstorage.Config{RootDir: "not/valid"})
	require.ErrorIs(t, err, sdstorage.ErrInvalidRoot)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	rec := record.New()
	rec.Set("title", "hello")

	require.NoError(t, e.Save(ctx, "NOTE.TXT", rec, nil))

	got, err := e.Load(ctx, "NOTE.TXT")
	require.NoError(t, err)

	v, ok := got.Get("title")
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestSave_VersionRefused(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	// The codec writes the version header only when TypeID is set, so both
	// records carry one for the version to survive the round trip.
	newer := record.New()
	newer.TypeID = "note"
	newer.Version = 5
	newer.Set("k", "v5")

	require.NoError(t, e.Save(ctx, "NOTE.TXT", newer, nil))

	_, err := e.Load(ctx, "NOTE.TXT")
	require.NoError(t, err)

	older := record.New()
	older.TypeID = "note"
	older.Version = 3
	older.Set("k", "v3")

	err = e.Save(ctx, "NOTE.TXT", older, nil)
	require.ErrorIs(t, err, sdstorage.ErrVersionRefused)
}

func TestErase_RemovesTarget(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	rec := record.New()
	rec.Set("k", "v")
	require.NoError(t, e.Save(ctx, "NOTE.TXT", rec, nil))

	require.NoError(t, e.Erase(ctx, "NOTE.TXT", nil))

	_, err := e.Load(ctx, "NOTE.TXT")
	require.Error(t, err)
}

func TestErase_MissingTargetIsNotAnError(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Erase(ctx, "GHOST.TXT", nil))
}

func TestMkdir_CreatesDirectory(t *testing.T) {
	e := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Mkdir(ctx, "SUBDIR"))
}

// Scenario B (adapted to the Facade) — atomic two-file save. A multi-path
// explicit transaction updates two targets, one pre-existing and one new,
// and both changes become visible together on commit with no leftover
// work-directory files.
func TestExplicitTransaction_AtomicTwoFileSave(t *testing.T) {
	fs := sdfs.NewMock(256)

	e, err := sdstorage.Open(context.Background(), sdstorage.Config{RootDir: "DATA", FS: fs})
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()

	pre := record.New()
	pre.Set("body", "A")
	require.NoError(t, e.Save(ctx, "NOTES.TXT", pre, nil))

	tx, err := e.Begin(ctx, "NOTES.TXT", "TODO.TXT")
	require.NoError(t, err)

	notes := record.New()
	notes.Set("body", "B")
	require.NoError(t, e.Save(ctx, "NOTES.TXT", notes, tx))

	todo := record.New()
	todo.Set("body", "X")
	require.NoError(t, e.Save(ctx, "TODO.TXT", todo, tx))

	require.NoError(t, e.Commit(tx))

	gotNotes, err := e.Load(ctx, "NOTES.TXT")
	require.NoError(t, err)
	v, _ := gotNotes.Get("body")
	assert.Equal(t, "B", v)

	gotTodo, err := e.Load(ctx, "TODO.TXT")
	require.NoError(t, err)
	v, _ = gotTodo.Get("body")
	assert.Equal(t, "X", v)

	it, err := fs.OpenNextChild("/DATA/~WORK")
	require.NoError(t, err)

	defer func() { _ = it.Close() }()

	leftover, ok, err := it.Next()
	require.NoError(t, err)
	assert.False(t, ok, "leftover work-directory file %q", leftover)
}

func TestContextCancelled_RejectsNewCalls(t *testing.T) {
	e := openTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Load(ctx, "NOTE.TXT")
	require.ErrorIs(t, err, context.Canceled)
}

func TestClose_IsIdempotent(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
}
