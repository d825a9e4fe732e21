package filehandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestDetectFileFormat(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		data    []byte
		want    string
		wantErr bool
	}{
		{"extension", "a.JPG", []byte("whatever"), "jpeg", false},
		{"tiff extension", "a.tif", nil, "tiff", false},
		{"sniffed png", "noext", pngMagic, "png", false},
		{"sniffed tiff", "scan.dat", []byte("II*\x00\x08\x00\x00\x00"), "tiff", false},
		{"text", "notes.txt", []byte("just words"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFileFormat(writeFile(t, dir, tt.file, tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadFileBytes(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "img.png", []byte("0123456789"))

	data, err := ReadFileBytes(p, 10)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)

	_, err = ReadFileBytes(p, 9)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	data, err = ReadFileBytes(p, 0)
	require.NoError(t, err)
	assert.Len(t, data, 10)

	_, err = ReadFileBytes(filepath.Join(dir, "missing.png"), 10)
	assert.Error(t, err)

	_, err = ReadFileBytes(dir, 10)
	assert.Error(t, err)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.png"))
	assert.True(t, IsURL("http://example.com"))
	assert.False(t, IsURL("ftp://example.com"))
	assert.False(t, IsURL("./a.png"))
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pics/cat.png", "/render":
			_, _ = w.Write(pngMagic)
		case "/big.png":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	ctx := context.Background()

	p, err := DownloadFile(ctx, srv.URL+"/pics/cat.png", dir, 0, 1024)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cat.png"), p)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, pngMagic, data)

	p, err = DownloadFile(ctx, srv.URL+"/render", dir, 0, 1024)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(p), "download_"))
	assert.Equal(t, ".png", filepath.Ext(p))

	_, err = DownloadFile(ctx, srv.URL+"/big.png", dir, 0, 16)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = DownloadFile(ctx, srv.URL+"/missing.png", dir, 0, 1024)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestDownloadFile_SameBaseName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(append(append([]byte{}, pngMagic...), r.URL.Path...))
	}))
	defer srv.Close()

	dir := t.TempDir()
	existing := writeFile(t, dir, "image.png", []byte("local evidence"))
	ctx := context.Background()

	first, err := DownloadFile(ctx, srv.URL+"/a/image.png", dir, 0, 1024)
	require.NoError(t, err)
	second, err := DownloadFile(ctx, srv.URL+"/b/image.png", dir, 0, 1024)
	require.NoError(t, err)

	assert.NotEqual(t, existing, first)
	assert.NotEqual(t, first, second)
	assert.Equal(t, ".png", filepath.Ext(first))
	assert.True(t, strings.HasPrefix(filepath.Base(second), "download_"))

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "local evidence", string(data))

	data, err = os.ReadFile(first)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "/a/image.png"))
	data, err = os.ReadFile(second)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "/b/image.png"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestFilesInDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.png", nil)
	writeFile(t, dir, "sub/b.JPG", nil)
	writeFile(t, dir, "c.txt", nil)

	files, err := FilesInDirectory(dir, []string{".png", ".jpg"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.png"),
		filepath.Join(dir, "sub", "b.JPG"),
	}, files)

	all, err := FilesInDirectory(dir, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = FilesInDirectory(filepath.Join(dir, "a.png"), nil)
	assert.Error(t, err)
}

func TestGatherImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.webp", nil)
	writeFile(t, dir, "a.png", nil)
	writeFile(t, dir, "readme.md", nil)
	writeFile(t, dir, "nested/c.png", nil)

	files, err := GatherImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.webp")}, files)
}

func TestReadLines(t *testing.T) {
	p := writeFile(t, t.TempDir(), "list.txt", []byte("# targets\n a.png \n\nhttps://x/y.jpg\n"))
	lines, err := ReadLines(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "https://x/y.jpg"}, lines)
}

func TestSaveFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "deep", "out.json")
	require.NoError(t, SaveFile([]byte("{}"), p))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
