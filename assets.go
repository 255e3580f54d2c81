package main

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	onnxVersion = "1.16.3"
	wordNetURL  = "https://wordnetcode.princeton.edu/3.0/WNdb-3.0.tar.gz"

	// cap on any single extracted file
	maxExtractBytes = 100 * 1024 * 1024
)

// wordNetIndexes are the files the word bank reads
var wordNetIndexes = map[string]bool{
	"index.noun": true,
	"index.adj":  true,
	"index.adv":  true,
	"index.verb": true,
}

func onnxDownloadURL() (string, string) {
	base := "https://github.com/microsoft/onnxruntime/releases/download/v" + onnxVersion

	switch runtime.GOOS {
	case "windows":
		return base + "/onnxruntime-win-x64-" + onnxVersion + ".zip", "zip"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return base + "/onnxruntime-osx-arm64-" + onnxVersion + ".tgz", "tgz"
		}
		return base + "/onnxruntime-osx-x86_64-" + onnxVersion + ".tgz", "tgz"
	default:
		if runtime.GOARCH == "arm64" {
			return base + "/onnxruntime-linux-aarch64-" + onnxVersion + ".tgz", "tgz"
		}
		return base + "/onnxruntime-linux-x64-" + onnxVersion + ".tgz", "tgz"
	}
}

func onnxLibraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

func onnxLibDir() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "lib"), nil
}

// ModelDir is where the embedding model and tokenizer live
func ModelDir() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "models"), nil
}

// EnsureONNXRuntime downloads the ONNX runtime library unless it is installed
func EnsureONNXRuntime(ctx context.Context, progressFn func(string)) error {
	if isONNXAvailable() {
		notify(progressFn, "ONNX Runtime already available")
		return nil
	}

	libDir, err := onnxLibDir()
	if err != nil {
		return fmt.Errorf("cannot determine lib directory: %w", err)
	}
	if _, err := os.Stat(filepath.Join(libDir, onnxLibraryName())); err == nil {
		notify(progressFn, "ONNX Runtime already downloaded")
		return nil
	}

	url, archiveType := onnxDownloadURL()
	notify(progressFn, fmt.Sprintf("Downloading ONNX Runtime v%s...", onnxVersion))

	archive, err := downloadTemp(ctx, url, "onnxruntime-*", progressFn)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(archive) }()

	if err := os.MkdirAll(libDir, 0750); err != nil {
		return fmt.Errorf("failed to create lib directory: %w", err)
	}

	notify(progressFn, "Extracting...")
	keep := func(name string) bool { return strings.Contains(name, "/lib/") && isLibraryFile(filepath.Base(name)) }
	if archiveType == "zip" {
		_, err = extractZip(archive, libDir, keep)
	} else {
		_, err = extractTarGz(archive, libDir, keep)
	}
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	notify(progressFn, "ONNX Runtime installed")
	return nil
}

// EnsureEmbeddingModel downloads the BGE-small model and tokenizer into ModelDir
func EnsureEmbeddingModel(ctx context.Context, progressFn func(string)) error {
	dir, err := ModelDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	modelFile := filepath.Join(dir, bgeModelFile)
	tokenizerFile := filepath.Join(dir, bgeTokenizerFile)
	if fileExists(modelFile) && fileExists(tokenizerFile) {
		notify(progressFn, "Embedding model already downloaded")
		return nil
	}

	notify(progressFn, "Downloading BGE-small embedding model (~130MB)...")
	if err := downloadFile(ctx, BGESmallModelURL, modelFile, progressFn); err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	notify(progressFn, "Downloading tokenizer...")
	if err := downloadFile(ctx, BGESmallTokenizerURL, tokenizerFile, progressFn); err != nil {
		return fmt.Errorf("failed to download tokenizer: %w", err)
	}
	notify(progressFn, "Embedding model ready")
	return nil
}

// EnsureWordNet downloads the WordNet database and keeps its index files in dir
func EnsureWordNet(ctx context.Context, dir string, progressFn func(string)) error {
	if fileExists(filepath.Join(dir, "index.noun")) {
		notify(progressFn, "WordNet already installed")
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create WordNet directory: %w", err)
	}

	notify(progressFn, "Downloading WordNet 3.0...")
	archive, err := downloadTemp(ctx, wordNetURL, "wordnet-*", progressFn)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(archive) }()

	n, err := extractTarGz(archive, dir, func(name string) bool { return wordNetIndexes[filepath.Base(name)] })
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no WordNet index files found in archive")
	}
	notify(progressFn, fmt.Sprintf("WordNet installed (%d index files)", n))
	return nil
}

func notify(progressFn func(string), msg string) {
	if progressFn != nil {
		progressFn(msg)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func downloadTemp(ctx context.Context, url, pattern string, progressFn func(string)) (string, error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()

	if err := downloadFile(ctx, url, path, progressFn); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("download failed: %w", err)
	}
	return path, nil
}

// downloadFile streams url to dest through a .tmp file, reporting progress every 10%
func downloadFile(ctx context.Context, url, dest string, progressFn func(string)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	tmpFile := dest + ".tmp"
	f, err := os.Create(tmpFile) //nolint:gosec // dest is under the app directory or a temp file
	if err != nil {
		return err
	}

	var downloaded int64
	lastDecile := int64(-1)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				_ = f.Close()
				_ = os.Remove(tmpFile)
				return writeErr
			}
			downloaded += int64(n)
			if resp.ContentLength > 0 {
				if decile := downloaded * 10 / resp.ContentLength; decile != lastDecile {
					lastDecile = decile
					notify(progressFn, fmt.Sprintf("  %d%% (%.1f MB)", decile*10, float64(downloaded)/(1024*1024)))
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = f.Close()
			_ = os.Remove(tmpFile)
			return readErr
		}
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return err
	}
	return os.Rename(tmpFile, dest)
}

// extractZip writes the entries keep accepts into destDir, flattened.
// It returns the number of files written.
func extractZip(zipPath, destDir string, keep func(string) bool) (int, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = r.Close() }()

	written := 0
	for _, f := range r.File {
		name := filepath.Base(f.Name)
		if f.FileInfo().IsDir() || name == "." || name == ".." || !keep(f.Name) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return written, err
		}
		err = writeLimited(filepath.Join(destDir, name), rc)
		_ = rc.Close()
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// extractTarGz writes the entries keep accepts into destDir, flattened.
// It returns the number of files written.
func extractTarGz(tgzPath, destDir string, keep func(string) bool) (int, error) {
	f, err := os.Open(tgzPath) //nolint:gosec // temp file we created
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return 0, err
	}
	defer func() { _ = gzr.Close() }()

	tr := tar.NewReader(gzr)
	written := 0
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, err
		}

		name := filepath.Base(header.Name)
		if header.Typeflag != tar.TypeReg || name == "." || name == ".." || !keep(header.Name) {
			continue
		}
		if err := writeLimited(filepath.Join(destDir, name), tr); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func writeLimited(destPath string, r io.Reader) error {
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600) //nolint:gosec // flattened base name
	if err != nil {
		return err
	}
	_, err = io.CopyN(out, r, maxExtractBytes)
	_ = out.Close()
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// isLibraryFile reports whether name is an ONNX runtime shared library
func isLibraryFile(name string) bool {
	if strings.HasSuffix(name, ".dll") || strings.HasSuffix(name, ".dylib") {
		return true
	}
	return strings.HasPrefix(name, "libonnxruntime") && strings.Contains(name, ".so")
}
