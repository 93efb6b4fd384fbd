package record_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmowehhuk/sdstorage/record"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	r := record.New()
	r.Set("/ROOT/a.txt", "/ROOT/~WORK/1.tmp")
	r.Set("/ROOT/b.txt", record.Tombstone)

	var buf bytes.Buffer
	require.NoError(t, r.Save(&buf))

	got, err := record.Load(&buf)
	require.NoError(t, err)

	assert.Equal(t, []string{"/ROOT/a.txt", "/ROOT/b.txt"}, got.Keys())

	v, ok := got.Get("/ROOT/b.txt")
	require.True(t, ok)
	assert.Equal(t, record.Tombstone, v)
}

func TestSave_OmitsHeaderWhenTypeIDEmpty(t *testing.T) {
	r := record.New()
	r.Set("k", "v")

	var buf bytes.Buffer
	require.NoError(t, r.Save(&buf))

	assert.Equal(t, "k=v\n", buf.String())
}

func TestSave_IncludesHeaderWhenTypeIDSet(t *testing.T) {
	r := record.New()
	r.TypeID = "note"
	r.Version = 3
	r.Set("k", "v")

	var buf bytes.Buffer
	require.NoError(t, r.Save(&buf))

	assert.Equal(t, "type=note\nversion=3\nk=v\n", buf.String())
}

func TestLoad_ValuesMayContainEquals(t *testing.T) {
	r, err := record.Load(strings.NewReader("key=a=b=c\n"))
	require.NoError(t, err)

	v, ok := r.Get("key")
	require.True(t, ok)
	assert.Equal(t, "a=b=c", v)
}

func TestLoad_RejectsDuplicateKeys(t *testing.T) {
	_, err := record.Load(strings.NewReader("k=1\nk=2\n"))
	require.ErrorIs(t, err, record.ErrDuplicateKey)
}

func TestLoad_RejectsMalformedLine(t *testing.T) {
	_, err := record.Load(strings.NewReader("no-equals-sign\n"))
	require.ErrorIs(t, err, record.ErrMalformedLine)
}

func TestDelete_PreservesOrder(t *testing.T) {
	r := record.New()
	r.Set("a", "1")
	r.Set("b", "2")
	r.Set("c", "3")
	r.Delete("b")

	assert.Equal(t, []string{"a", "c"}, r.Keys())
}
