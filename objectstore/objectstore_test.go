package objectstore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vegafusion-go/vf/objectstore"
)

func TestFileStore_ReadsRelativeToBaseDir(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(dir, "data.csv"), []byte("a,b\n1,2\n"), 0o644))

	store := &objectstore.FileStore{BaseDir: dir}
	data, err := store.Fetch(context.Background(), "data.csv")
	require.NoError(err)
	require.Equal("a,b\n1,2\n", string(data))
}

func TestHTTPStore_FetchesAndErrorsOnStatus(t *testing.T) {
	require := require.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			w.Write([]byte("hello"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := &objectstore.HTTPStore{}
	data, err := store.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(err)
	require.Equal("hello", string(data))

	_, err = store.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(err)
}

func TestDispatcher_RoutesByScheme(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	require.NoError(os.WriteFile(filepath.Join(dir, "rows.json"), []byte("[]"), 0o644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("remote"))
	}))
	defer srv.Close()

	d := objectstore.NewDispatcher(dir)
	local, err := d.Fetch(context.Background(), "rows.json")
	require.NoError(err)
	require.Equal("[]", string(local))

	remote, err := d.Fetch(context.Background(), srv.URL)
	require.NoError(err)
	require.Equal("remote", string(remote))
}

func TestDispatcher_UnknownSchemeErrors(t *testing.T) {
	require := require.New(t)
	d := objectstore.NewDispatcher(t.TempDir())
	_, err := d.Fetch(context.Background(), "s3://bucket/key")
	require.Error(err)
}
