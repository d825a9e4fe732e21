// Package metadata extracts EXIF tags and PNG text chunks and flags the
// free-text fields where a message could be hidden.
package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"Decodeur/pkg/models"
)

// ErrNoMetadata is returned when the buffer carries neither EXIF nor text chunks
var ErrNoMetadata = errors.New("no metadata found")

// SuspiciousFields are the EXIF fields that hold arbitrary text
var SuspiciousFields = []exif.FieldName{
	exif.UserComment,
	exif.ImageDescription,
	exif.XPComment,
	exif.XPTitle,
}

// maxStandardValue bounds how much of a non-text tag is kept
const maxStandardValue = 256

// userComment character code prefixes, 8 bytes each
var commentCodes = [][]byte{
	[]byte("ASCII\x00\x00\x00"),
	[]byte("UNICODE\x00"),
	[]byte("JIS\x00\x00\x00\x00\x00"),
	make([]byte, 8),
}

// Extract reads the metadata of raw. EXIF is looked up directly for JPEG and
// TIFF, and in the eXIf chunk for PNG. A buffer without any metadata yields
// an empty report along with ErrNoMetadata.
func Extract(raw []byte) (models.MetadataReport, error) {
	report := models.MetadataReport{Standard: map[string]string{}}
	found := false

	exifData := raw
	if isPNG(raw) {
		chunks, err := ReadPNGText(raw)
		for _, c := range chunks.Text {
			report.AddComment("PNG:"+c.Keyword, c.Value, false)
			found = true
		}
		if err != nil {
			// chunks read before the damage are still reported
			return report, err
		}
		exifData = chunks.Exif
	}

	if len(exifData) > 0 {
		n, err := walkExif(exifData, &report)
		if err != nil && n == 0 && !found {
			return report, fmt.Errorf("%w: %v", ErrNoMetadata, err)
		}
		found = found || n > 0
	}

	if !found {
		return report, ErrNoMetadata
	}
	return report, nil
}

type walker struct {
	report *models.MetadataReport
	count  int
}

func (w *walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	w.count++
	if isSuspiciousField(name) {
		value := strings.TrimSpace(tagText(name, tag))
		if value != "" {
			w.report.AddComment(string(name), value, true)
		}
		w.report.Standard[string(name)] = value
		return nil
	}
	w.report.Standard[string(name)] = truncate(tagText(name, tag), maxStandardValue)
	return nil
}

// walkExif decodes EXIF and records every tag. goexif may return partial
// data together with an error for broken sub-directories; what was parsed is
// kept.
func walkExif(data []byte, report *models.MetadataReport) (int, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if x == nil {
		return 0, err
	}
	w := &walker{report: report}
	if werr := x.Walk(w); werr != nil {
		return w.count, werr
	}
	return w.count, err
}

func isSuspiciousField(name exif.FieldName) bool {
	for _, f := range SuspiciousFields {
		if f == name {
			return true
		}
	}
	return false
}

// tagText renders a tag as readable text
func tagText(name exif.FieldName, tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		s, err := tag.StringVal()
		if err == nil {
			return s
		}
	}
	switch name {
	case exif.XPComment, exif.XPTitle, exif.XPAuthor, exif.XPKeywords, exif.XPSubject:
		return decodeUTF16LE(tag.Val)
	case exif.UserComment:
		return decodeUserComment(tag.Val)
	}
	if tag.Format() == tiff.UndefVal {
		return strings.ToValidUTF8(strings.TrimRight(string(tag.Val), "\x00"), "")
	}
	return tag.String()
}

func decodeUserComment(val []byte) string {
	if len(val) >= 8 {
		if bytes.Equal(val[:8], []byte("UNICODE\x00")) {
			return decodeUTF16LE(val[8:])
		}
		for _, code := range commentCodes {
			if bytes.Equal(val[:8], code) {
				val = val[8:]
				break
			}
		}
	}
	return strings.ToValidUTF8(strings.TrimRight(string(val), "\x00"), "")
}

func decodeUTF16LE(b []byte) string {
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])|uint16(b[i+1])<<8)
	}
	return strings.TrimRight(string(utf16.Decode(u)), "\x00")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
