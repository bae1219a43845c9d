package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	st, err := New(dir, "static/uploads/")
	require.NoError(t, err)

	url, err := st.Save(context.Background(), "items/abc/pic.jpg", []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "/static/uploads/items/abc/pic.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "items", "abc", "pic.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	require.NoError(t, st.Delete(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, "items", "abc", "pic.jpg"))
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine.
	assert.NoError(t, st.Delete(context.Background(), url))
}

func TestSave_RejectsTraversal(t *testing.T) {
	st, err := New(t.TempDir(), "/static/uploads")
	require.NoError(t, err)

	_, err = st.Save(context.Background(), "../escape.jpg", []byte("x"), "image/jpeg")
	assert.Error(t, err)
}

func TestDelete_IgnoresForeignURL(t *testing.T) {
	st, err := New(t.TempDir(), "/static/uploads")
	require.NoError(t, err)
	assert.NoError(t, st.Delete(context.Background(), "https://bucket.s3.amazonaws.com/x.jpg"))
}
