// Package encoder plants test evidence in an image: visible text for OCR, a
// length-prefixed LSB message, an EXIF comment, an appended ZIP magic and
// credential strings. Its output exercises every detector of the analyzer.
package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"Decodeur/pkg/extractor/image/lsb"
	"Decodeur/pkg/metadata"
)

// Defaults of the planted evidence
const (
	DefaultOCRText     = "SECRET_OCR_123"
	DefaultDescription = "Nothing to see here..."
	DefaultFlag        = "FLAG{TEST_STENO_SUCCESS}"
	DefaultPassword    = "supersecret123"
)

// zip local file header magic, appended as a fake embedded archive
var zipMagic = []byte("PK\x03\x04")

// textOrigin is the baseline of the drawn OCR text
var textOrigin = fixed.P(10, 30)

var textColor = color.NRGBA{R: 200, G: 200, B: 200, A: 255}

// Options selects what Encode plants
type Options struct {
	Message     string // LSB payload, also repeated in EXIF and the trailer
	OCRText     string // drawn on the image, empty draws nothing
	Description string // EXIF ImageDescription
	Flag        string
	Password    string
	LSBOnly     bool // skip EXIF and the trailer
}

// DefaultOptions plants message with the stock decoys
func DefaultOptions(message string) Options {
	return Options{
		Message:     message,
		OCRText:     DefaultOCRText,
		Description: DefaultDescription,
		Flag:        DefaultFlag,
		Password:    DefaultPassword,
	}
}

// Encode returns src as a PNG carrying the evidence selected by opts
func Encode(src image.Image, opts Options) ([]byte, error) {
	if src == nil {
		return nil, errors.New("nil image provided")
	}
	if opts.Message == "" {
		return nil, errors.New("empty message")
	}

	b := src.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)
	if opts.OCRText != "" {
		d := font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(textColor),
			Face: basicfont.Face7x13,
			Dot:  textOrigin,
		}
		d.DrawString(opts.OCRText)
	}

	hidden, err := lsb.Hide(canvas, []byte(opts.Message))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, hidden); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	if opts.LSBOnly {
		return buf.Bytes(), nil
	}

	exif := metadata.EncodeExif(opts.Description, "HiddenExif:"+opts.Message)
	out, err := metadata.InsertPNGChunk(buf.Bytes(), "eXIf", exif)
	if err != nil {
		return nil, err
	}
	return append(out, Trailer(opts)...), nil
}

// Trailer is what Encode appends after IEND
func Trailer(opts Options) []byte {
	var t bytes.Buffer
	t.Write(zipMagic)
	if opts.Flag != "" {
		fmt.Fprintf(&t, "\n%s\n", opts.Flag)
	}
	if opts.Password != "" {
		fmt.Fprintf(&t, "password=%s\n", opts.Password)
	}
	fmt.Fprintf(&t, "TRAILING_DATA:%s\n", opts.Message)
	return t.Bytes()
}
