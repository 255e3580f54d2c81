package main

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTarGz(t *testing.T, files map[string]string) string {
	t.Helper()
	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "WNdb-3.0/", Typeflag: tar.TypeDir, Mode: 0755}))
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())

	path := filepath.Join(t.TempDir(), "archive.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	return path
}

func TestExtractTarGz(t *testing.T) {
	archive := writeTarGz(t, map[string]string{
		"WNdb-3.0/dict/index.noun": "ember n 1 1 @ 1 0 00000001\n",
		"WNdb-3.0/dict/data.noun":  "ignored",
		"WNdb-3.0/dict/index.adj":  "ardent a 1 1 & 1 0 00000002\n",
	})
	dest := t.TempDir()

	n, err := extractTarGz(archive, dest, func(name string) bool { return wordNetIndexes[filepath.Base(name)] })
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dest, "index.noun"))
	require.NoError(t, err)
	assert.Equal(t, "ember n 1 1 @ 1 0 00000001\n", string(data))
	assert.NoFileExists(t, filepath.Join(dest, "data.noun"))
}

func TestExtractZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"onnxruntime-win-x64/lib/onnxruntime.dll", "onnxruntime-win-x64/README.md"} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "runtime.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
	dest := t.TempDir()

	n, err := extractZip(path, dest, func(name string) bool { return isLibraryFile(filepath.Base(name)) })
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(dest, "onnxruntime.dll"))
}

func TestIsLibraryFile(t *testing.T) {
	tests := map[string]bool{
		"libonnxruntime.so.1.16.3":    true,
		"libonnxruntime.so":           true,
		"libonnxruntime.1.16.3.dylib": true,
		"onnxruntime.dll":             true,
		"libonnxruntime_providers.a":  false,
		"README.md":                   false,
		"libsomethingelse.so":         false,
		"onnxruntime_c_api.h":         false,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, isLibraryFile(name))
		})
	}
}

func TestDownloadFile(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	t.Run("writes file and reports progress", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "model.onnx")
		var progress []string
		err := downloadFile(context.Background(), srv.URL+"/model", dest, func(s string) { progress = append(progress, s) })
		require.NoError(t, err)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
		assert.NotEmpty(t, progress)
		assert.NoFileExists(t, dest+".tmp")
	})

	t.Run("http error", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "model.onnx")
		err := downloadFile(context.Background(), srv.URL+"/missing", dest, nil)
		assert.ErrorContains(t, err, "HTTP 404")
		assert.NoFileExists(t, dest)
	})
}

func TestEnsureWordNetAlreadyInstalled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.noun"), []byte("x"), 0600))

	var msgs []string
	require.NoError(t, EnsureWordNet(context.Background(), dir, func(s string) { msgs = append(msgs, s) }))
	assert.Equal(t, []string{"WordNet already installed"}, msgs)
}
