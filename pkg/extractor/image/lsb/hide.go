package lsb

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"strconv"
)

// ErrMessageTooLarge is returned when a payload does not fit in the image
var ErrMessageTooLarge = errors.New("message too large for image")

// Capacity is the largest payload Hide can store in img, header included
func Capacity(img image.Image) int {
	b := img.Bounds()
	return b.Dx() * b.Dy() * 3 / 8
}

// Hide writes "<len>:<payload>" into the R, G, B least-significant bits of
// a copy of img, in the layout Reveal reads. The copy is opaque and has its
// origin at 0,0; img is left untouched.
func Hide(img image.Image, payload []byte) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("nil image provided")
	}
	if len(payload) == 0 {
		return nil, errors.New("empty payload")
	}

	data := append([]byte(strconv.Itoa(len(payload))+":"), payload...)
	if n := Capacity(img); len(data) > n {
		return nil, fmt.Errorf("%w: %d bytes, image holds %d", ErrMessageTooLarge, len(data), n)
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}

	w := bitWriter{img: dst}
	for _, c := range data {
		w.writeByte(c)
	}
	return dst, nil
}

// bitWriter is the counterpart of bitReader
type bitWriter struct {
	img *image.NRGBA
	pos int
}

func (w *bitWriter) writeByte(c byte) {
	for i := 7; i >= 0; i-- {
		pixel, channel := w.pos/3, w.pos%3
		width := w.img.Rect.Dx()
		off := (pixel/width)*w.img.Stride + (pixel%width)*4 + channel
		w.img.Pix[off] = w.img.Pix[off]&^1 | (c>>uint(i))&1
		w.pos++
	}
}
