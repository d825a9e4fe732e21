package filehandler

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

/*
File explanation:
This file loads the bytes an analysis works on.
DetectFileFormat names the image format of a file by extension, falling back to content sniffing.
ReadFileBytes reads a whole file, refusing anything larger than the configured limit.
DownloadFile fetches a remote image into a directory, with a timeout and the same size limit.
SaveFile and FilesInDirectory are used by the report writer and the directory mode of the CLI.
*/

// DefaultTimeout is the download timeout used when none is given
const DefaultTimeout = 60 * time.Second

// maxNameAttempts bounds the retries for a free download name
const maxNameAttempts = 8

var (
	// ErrFileTooLarge is returned when a file or download exceeds the size limit
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedFormat is returned when no image format can be recognized
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// SupportedImageFormats maps file extensions to decoder names
var SupportedImageFormats = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
	".bmp":  "bmp",
	".tif":  "tiff",
	".tiff": "tiff",
	".webp": "webp",
}

// ImageExtensions returns the keys of SupportedImageFormats
func ImageExtensions() []string {
	exts := make([]string, 0, len(SupportedImageFormats))
	for ext := range SupportedImageFormats {
		exts = append(exts, ext)
	}
	return exts
}

// sniffedTypes maps the MIME types reported by content sniffing to decoder names
var sniffedTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/webp": "webp",
}

// DetectFileFormat names the decoder for a file, trusting a known extension
// and sniffing the first 512 bytes otherwise.
func DetectFileFormat(filePath string) (string, error) {
	if format, ok := SupportedImageFormats[strings.ToLower(filepath.Ext(filePath))]; ok {
		return format, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, 512))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return SniffFormat(head)
}

// SniffFormat names the image format of data from its leading bytes
func SniffFormat(data []byte) (string, error) {
	// DetectContentType has no TIFF rule
	if bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*")) {
		return "tiff", nil
	}
	mime := http.DetectContentType(data)
	if format, ok := sniffedTypes[mime]; ok {
		return format, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
}

// ReadFileBytes reads a whole file. Files larger than limit bytes are
// rejected; a limit of zero or less disables the check.
func ReadFileBytes(filePath string, limit int64) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", filePath)
	}
	if limit > 0 && st.Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, st.Size(), limit)
	}
	return readLimited(f, limit)
}

// readLimited drains r, failing with ErrFileTooLarge past limit bytes
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}
	return data, nil
}

// IsURL checks if the given string is a URL
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// DownloadFile fetches rawURL into dir and returns the saved path. The file
// keeps the last element of the URL path as its name when it has an image
// extension; otherwise a random name is generated.
func DownloadFile(ctx context.Context, rawURL, dir string, timeout time.Duration, limit int64) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status downloading %s: %s", rawURL, resp.Status)
	}
	if limit > 0 && resp.ContentLength > limit {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, resp.ContentLength, limit)
	}

	data, err := readLimited(resp.Body, limit)
	if err != nil {
		return "", err
	}

	return saveNew(dir, downloadName(rawURL), extensionFor(data), data)
}

// downloadName keeps the last element of the URL path when it names an
// image, and returns "" otherwise.
func downloadName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if base := path.Base(u.Path); IsImageFile(base) {
		return base
	}
	return ""
}

func extensionFor(data []byte) string {
	if format, err := SniffFormat(data); err == nil {
		return "." + format
	}
	return ".bin"
}

func randomName(ext string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	return "download_" + hex.EncodeToString(buf) + ext, nil
}

// saveNew writes data into dir under name without replacing an existing
// file. When name is empty or taken, a random download_<hex> name with ext
// is used instead.
func saveNew(dir, name, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if name != "" {
		ext = filepath.Ext(name)
	}
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		if name == "" {
			var err error
			if name, err = randomName(ext); err != nil {
				return "", err
			}
		}
		dst := filepath.Join(dir, name)
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			name = ""
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dst, err)
		}
		_, werr := f.Write(data)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return "", fmt.Errorf("failed to write %s: %w", dst, werr)
		}
		return dst, nil
	}
	return "", fmt.Errorf("no free file name in %s", dir)
}

// SaveFile writes data to filePath, creating parent directories
func SaveFile(data []byte, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}
	return nil
}

// FilesInDirectory walks root recursively and returns the files with one
// of the given extensions, or every file when extensions is empty.
func FilesInDirectory(root string, extensions []string) ([]string, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var found []string
	walk := func(p string, d os.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir():
			return nil
		case len(extensions) == 0 || hasExtension(p, extensions):
			found = append(found, p)
		}
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return found, nil
}

func hasExtension(name string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range extensions {
		if ext == want {
			return true
		}
	}
	return false
}
