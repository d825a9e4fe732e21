// Package imaging decodes image bytes and splits them into the 8-bit planes
// the detectors work on.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"Decodeur/pkg/models"
)

// ErrEmptyImage is returned for images with no pixels
var ErrEmptyImage = errors.New("image has no pixels")

// Decoded is a decoded image and the planes derived from it
type Decoded struct {
	Image    *image.NRGBA
	Format   string // decoder name, e.g. "png"
	Gray     models.Plane
	Channels [3]models.Plane // blue, green, red
}

// Decode decodes raw with any registered decoder and derives the grayscale
// and per-channel planes.
func Decode(raw []byte) (*Decoded, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	nrgba := ToNRGBA(img)
	if nrgba.Rect.Empty() {
		return nil, ErrEmptyImage
	}
	gray, channels := Planes(nrgba)
	return &Decoded{
		Image:    nrgba,
		Format:   format,
		Gray:     gray,
		Channels: channels,
	}, nil
}

// ToNRGBA returns img as non-premultiplied 8-bit RGBA with its origin at 0,0
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Planes returns the grayscale plane and the blue, green and red planes
func Planes(img *image.NRGBA) (models.Plane, [3]models.Plane) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	gray := models.NewPlane(w, h)
	blue, green, red := models.NewPlane(w, h), models.NewPlane(w, h), models.NewPlane(w, h)

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r, g, b := row[x*4], row[x*4+1], row[x*4+2]
			i := y*w + x
			gray.Pix[i] = Luma(r, g, b)
			blue.Pix[i] = b
			green.Pix[i] = g
			red.Pix[i] = r
		}
	}
	return gray, [3]models.Plane{blue, green, red}
}

// Luma converts one pixel to gray with the fixed-point BT.601 weights
func Luma(r, g, b uint8) uint8 {
	const (
		rw    = 4899
		gw    = 9617
		bw    = 1868
		shift = 14
	)
	return uint8((uint32(r)*rw + uint32(g)*gw + uint32(b)*bw + 1<<(shift-1)) >> shift)
}
