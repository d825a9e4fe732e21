package lsb

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strconv"

	"Decodeur/pkg/extractor"
	"Decodeur/pkg/imaging"
	"Decodeur/pkg/models"
)

// ErrNoMessage is returned when the image carries no length-prefixed message
var ErrNoMessage = errors.New("no hidden message")

// AlgorithmLengthPrefixed is the "<length>:<message>" RGB-LSB convention
const AlgorithmLengthPrefixed = "lsb-rgb-length-prefixed"

// DefaultMaxSize caps a revealed message when the options leave it unset
const DefaultMaxSize = 1 << 20

// maxHeaderDigits bounds the decimal length header
const maxHeaderDigits = 10

// Common file signatures, used to label what was revealed
var fileSignatures = []struct {
	kind  string
	magic []byte
}{
	{"png", []byte("\x89PNG")},
	{"jpeg", []byte("\xff\xd8\xff")},
	{"pdf", []byte("%PDF")},
	{"zip", []byte("PK\x03\x04")},
	{"gif", []byte("GIF8")},
}

// LSBExtractor reveals messages hidden one bit per colour channel in the
// least-significant bits of R, G and B, pixel by pixel in row-major order.
type LSBExtractor struct {
	extractor.BaseRevealer
}

// NewLSBExtractor creates a new LSB revealer
func NewLSBExtractor() *LSBExtractor {
	return &LSBExtractor{
		BaseRevealer: extractor.NewBaseRevealer("LSB Extractor",
			[]string{AlgorithmLengthPrefixed},
			"png", "bmp", "tiff", "jpeg", "gif", "webp"),
	}
}

// Reveal reads the decimal length header up to ':' and then that many
// characters, 8 bits each, most significant bit first.
func (e *LSBExtractor) Reveal(img image.Image, opts extractor.Options) (*models.ExtractionResult, error) {
	if img == nil {
		return nil, errors.New("nil image provided")
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	r := newBitReader(imaging.ToNRGBA(img))

	length, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if length > r.remainingBytes() {
		return nil, fmt.Errorf("%w: header claims %d bytes, image holds %d", ErrNoMessage, length, r.remainingBytes())
	}
	if length > maxSize {
		return nil, fmt.Errorf("%w: header claims %d bytes, limit is %d", ErrNoMessage, length, maxSize)
	}

	msg := make([]byte, 0, length)
	for len(msg) < length {
		b, ok := r.readByte()
		if !ok {
			return nil, ErrNoMessage
		}
		msg = append(msg, b)
	}

	return &models.ExtractionResult{
		Success:   true,
		Format:    detectFileSignature(msg),
		Algorithm: AlgorithmLengthPrefixed,
		Message:   string(msg),
		DataSize:  len(msg),
	}, nil
}

// readHeader decodes the digits preceding ':'. Anything else before the
// separator means the image does not follow the convention.
func readHeader(r *bitReader) (int, error) {
	var digits []byte
	for {
		b, ok := r.readByte()
		if !ok {
			return 0, ErrNoMessage
		}
		if b == ':' {
			break
		}
		if b < '0' || b > '9' || len(digits) == maxHeaderDigits {
			return 0, ErrNoMessage
		}
		digits = append(digits, b)
	}
	if len(digits) == 0 {
		return 0, ErrNoMessage
	}
	n, err := strconv.Atoi(string(digits))
	if err != nil || n == 0 {
		return 0, ErrNoMessage
	}
	return n, nil
}

// bitReader yields the R, G, B least-significant bits of an image in
// row-major pixel order.
type bitReader struct {
	img   *image.NRGBA
	total int // bits available
	pos   int // bits consumed
}

func newBitReader(img *image.NRGBA) *bitReader {
	return &bitReader{img: img, total: img.Rect.Dx() * img.Rect.Dy() * 3}
}

func (r *bitReader) remainingBytes() int {
	return (r.total - r.pos) / 8
}

func (r *bitReader) next() (byte, bool) {
	if r.pos >= r.total {
		return 0, false
	}
	pixel, channel := r.pos/3, r.pos%3
	w := r.img.Rect.Dx()
	x, y := pixel%w, pixel/w
	v := r.img.Pix[y*r.img.Stride+x*4+channel]
	r.pos++
	return v & 1, true
}

func (r *bitReader) readByte() (byte, bool) {
	var b byte
	for i := 0; i < 8; i++ {
		bit, ok := r.next()
		if !ok {
			return 0, false
		}
		b = b<<1 | bit
	}
	return b, true
}

// detectFileSignature labels revealed data by its leading bytes
func detectFileSignature(data []byte) string {
	for _, sig := range fileSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.kind
		}
	}
	return "text"
}
