package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stoky555/ownership-graph/internal/blob/core"
	"github.com/Stoky555/ownership-graph/internal/blob/fs"
)

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "blobs")
	st, err := fs.New(root)
	require.NoError(t, err)
	assert.Equal(t, core.DriverFilesystem, st.Driver())
	assert.DirExists(t, root)

	info, err := st.Put(ctx, "calcs/a.json", strings.NewReader(`{"version":1}`), core.PutOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(13), info.Size)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Len(t, info.ETag, 64)
	assert.FileExists(t, filepath.Join(root, "calcs", "a.json"))

	head, err := st.Head(ctx, "calcs/a.json")
	require.NoError(t, err)
	assert.Equal(t, info.ETag, head.ETag)

	// Overwrite.
	_, err = st.Put(ctx, "calcs/a.json", strings.NewReader(`{}`), core.PutOptions{})
	require.NoError(t, err)
	_, body, err := st.Get(ctx, "calcs/a.json")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "{}", string(data))

	_, err = st.Put(ctx, "b.yaml", strings.NewReader("version: 1\n"), core.PutOptions{})
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("x"), 0o644))

	list, err := st.List(ctx, "")
	require.NoError(t, err)
	keys := make([]string, 0, len(list))
	for _, i := range list {
		keys = append(keys, i.Key)
	}
	assert.Equal(t, []string{"b.yaml", "calcs/a.json"}, keys)
	assert.Equal(t, "application/yaml", list[0].ContentType)

	list, err = st.List(ctx, "calcs/")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	ok, err := st.Delete(ctx, "b.yaml")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.Delete(ctx, "b.yaml")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	st, err := fs.New(t.TempDir())
	require.NoError(t, err)

	_, err = st.Head(ctx, "missing.json")
	assert.True(t, core.IsNotFoundErr(err))
	_, _, err = st.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, core.ErrNotFound)

	for _, key := range []string{"", "  ", "/abs.json", "../up.json", "a/../../b"} {
		_, err := st.Put(ctx, key, strings.NewReader("x"), core.PutOptions{})
		assert.ErrorIs(t, err, core.ErrInvalidKey, key)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", fs.ContentType("a.JSON"))
	assert.Equal(t, "application/yaml", fs.ContentType("a.yml"))
	assert.Equal(t, "", fs.ContentType("noext"))
}
