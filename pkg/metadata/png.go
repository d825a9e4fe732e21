package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// ErrTruncatedChunk is returned when a PNG chunk runs past the end of the buffer
var ErrTruncatedChunk = errors.New("truncated png chunk")

// maxInflated bounds a decompressed text chunk
const maxInflated = 1 << 20

// TextChunk is one keyword/value pair from a tEXt, zTXt or iTXt chunk
type TextChunk struct {
	Type    string
	Keyword string
	Value   string
}

// PNGChunks is what ReadPNGText collects
type PNGChunks struct {
	Text []TextChunk
	Exif []byte // raw eXIf payload, nil when absent
}

func isPNG(raw []byte) bool {
	return bytes.HasPrefix(raw, pngSignature)
}

// ReadPNGText walks the chunk list up to IEND and collects text chunks and
// the eXIf payload. Chunk CRCs are not verified. Compressed chunks that fail
// to inflate are skipped.
func ReadPNGText(raw []byte) (PNGChunks, error) {
	var out PNGChunks
	if !isPNG(raw) {
		return out, errors.New("not a png")
	}

	pos := len(pngSignature)
	for pos+8 <= len(raw) {
		length := int(binary.BigEndian.Uint32(raw[pos : pos+4]))
		typ := string(raw[pos+4 : pos+8])
		start := pos + 8
		end := start + length
		if length < 0 || end+4 > len(raw) || end < start {
			return out, fmt.Errorf("%w: %s at %d", ErrTruncatedChunk, typ, pos)
		}
		data := raw[start:end]

		switch typ {
		case "tEXt":
			if c, ok := parseText(data); ok {
				out.Text = append(out.Text, c)
			}
		case "zTXt":
			if c, ok := parseZText(data); ok {
				out.Text = append(out.Text, c)
			}
		case "iTXt":
			if c, ok := parseIText(data); ok {
				out.Text = append(out.Text, c)
			}
		case "eXIf":
			out.Exif = data
		case "IEND":
			return out, nil
		}
		pos = end + 4
	}
	return out, nil
}

// tEXt: keyword NUL text (Latin-1)
func parseText(data []byte) (TextChunk, bool) {
	kw, rest, ok := bytes.Cut(data, []byte{0})
	if !ok {
		return TextChunk{}, false
	}
	return TextChunk{Type: "tEXt", Keyword: latin1(kw), Value: latin1(rest)}, true
}

// zTXt: keyword NUL method compressed-text
func parseZText(data []byte) (TextChunk, bool) {
	kw, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(rest) < 1 || rest[0] != 0 {
		return TextChunk{}, false
	}
	text, err := inflate(rest[1:])
	if err != nil {
		return TextChunk{}, false
	}
	return TextChunk{Type: "zTXt", Keyword: latin1(kw), Value: latin1(text)}, true
}

// iTXt: keyword NUL flag method language NUL translated NUL text (UTF-8)
func parseIText(data []byte) (TextChunk, bool) {
	kw, rest, ok := bytes.Cut(data, []byte{0})
	if !ok || len(rest) < 2 {
		return TextChunk{}, false
	}
	compressed := rest[0] == 1
	rest = rest[2:]
	if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
		return TextChunk{}, false
	}
	if _, rest, ok = bytes.Cut(rest, []byte{0}); !ok {
		return TextChunk{}, false
	}
	text := rest
	if compressed {
		var err error
		if text, err = inflate(rest); err != nil {
			return TextChunk{}, false
		}
	}
	return TextChunk{Type: "iTXt", Keyword: latin1(kw), Value: string(bytes.ToValidUTF8(text, nil))}, true
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxInflated))
}

func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}
