package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmowehhuk/sdstorage"
	"github.com/danmowehhuk/sdstorage/internal/sdcli"
	"github.com/danmowehhuk/sdstorage/sdfs"
)

func openTestCtlEngine(t *testing.T) *sdstorage.Engine {
	t.Helper()

	e, err := sdstorage.Open(context.Background(), sdstorage.Config{
		RootDir: "DATA",
		FS:      sdfs.NewMock(256),
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Close() })

	return e
}

func TestPutGetRm_RoundTrip(t *testing.T) {
	e := openTestCtlEngine(t)

	var out, errOut bytes.Buffer

	o := sdcli.NewIO(&out, &errOut)

	code := putCmd(e).Run(context.Background(), o, []string{"NOTE.TXT", "title=hello"})
	require.Equal(t, 0, code)

	out.Reset()

	code = getCmd(e).Run(context.Background(), o, []string{"NOTE.TXT"})
	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "title=hello")

	code = rmCmd(e).Run(context.Background(), o, []string{"NOTE.TXT"})
	require.Equal(t, 0, code)

	out.Reset()

	code = getCmd(e).Run(context.Background(), o, []string{"NOTE.TXT"})
	assert.Equal(t, 1, code)
}

func TestGetCmd_MissingPathUsage(t *testing.T) {
	e := openTestCtlEngine(t)

	var out, errOut bytes.Buffer

	o := sdcli.NewIO(&out, &errOut)

	code := getCmd(e).Run(context.Background(), o, nil)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "usage: get")
}

func TestLsCmd_ListsIndexEntriesUnderCap(t *testing.T) {
	e := openTestCtlEngine(t)

	require.NoError(t, e.Index().Upsert("kv", "apple", "1", nil))
	require.NoError(t, e.Index().Upsert("kv", "banana", "2", nil))

	var out, errOut bytes.Buffer

	o := sdcli.NewIO(&out, &errOut)

	code := lsCmd(e).Run(context.Background(), o, []string{"kv"})

	require.Equal(t, 0, code)
	assert.Contains(t, out.String(), "apple=1")
	assert.Contains(t, out.String(), "banana=2")
}

func TestFsckCmd_SucceedsOnCleanState(t *testing.T) {
	e := openTestCtlEngine(t)

	var out, errOut bytes.Buffer

	o := sdcli.NewIO(&out, &errOut)

	code := fsckCmd(e).Run(context.Background(), o, nil)

	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "fsck ok")
}
