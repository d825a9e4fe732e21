package encoder

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Decodeur/pkg/extractor"
	"Decodeur/pkg/extractor/image/lsb"
	"Decodeur/pkg/forensic"
	"Decodeur/pkg/metadata"
	"Decodeur/pkg/models"
)

func cover(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	return img
}

func TestEncode_DetectedByAnalyzer(t *testing.T) {
	data, err := Encode(cover(160, 64), DefaultOptions("meet at dawn"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "planted.png")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	res, err := forensic.NewAnalyzer(forensic.Options{}).AnalyzeFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "meet at dawn", res.Steganography.LSB)
	assert.True(t, res.Summary.ExtractionSuccess)
	for _, m := range []models.Method{models.MethodLSB, models.MethodEXIF, models.MethodStrings, models.MethodSignatures} {
		assert.True(t, res.Summary.Positive(m), "%s", m)
	}
	assert.GreaterOrEqual(t, res.Summary.SuspicionLevel.Rank(), models.SuspicionMedium.Rank())
	assert.True(t, res.Steganography.ASCIIStrings.Contains(DefaultFlag))
	assert.Contains(t, res.Steganography.Exif.Suspicious, "UserComment: HiddenExif:meet at dawn")
}

func TestEncode_Layout(t *testing.T) {
	src := cover(160, 64)
	before := append([]byte(nil), src.Pix...)

	data, err := Encode(src, DefaultOptions("payload"))
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix, "source untouched")

	trailer := Trailer(DefaultOptions("payload"))
	assert.True(t, bytes.HasSuffix(data, trailer))
	assert.Equal(t, "PK\x03\x04\nFLAG{TEST_STENO_SUCCESS}\npassword=supersecret123\nTRAILING_DATA:payload\n", string(trailer))

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 160, 64), img.Bounds())

	// the drawn text changes pixels around its baseline
	var lit int
	for x := 10; x < 10+7*len(DefaultOCRText); x++ {
		for y := 19; y < 32; y++ {
			if _, _, b, _ := img.At(x, y).RGBA(); b>>8 >= 198 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 0)

	chunks, err := metadata.ReadPNGText(data)
	require.NoError(t, err)
	assert.NotEmpty(t, chunks.Exif)
}

func TestEncode_LSBOnly(t *testing.T) {
	opts := Options{Message: "only bits", LSBOnly: true}
	data, err := Encode(cover(32, 32), opts)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(data, []byte("PK\x03\x04")))

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	got, err := lsb.NewLSBExtractor().Reveal(img, extractor.Options{})
	require.NoError(t, err)
	assert.Equal(t, "only bits", got.Message)

	chunks, err := metadata.ReadPNGText(data)
	require.NoError(t, err)
	assert.Empty(t, chunks.Exif)
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil, DefaultOptions("x"))
	assert.Error(t, err)

	_, err = Encode(cover(8, 8), Options{})
	assert.Error(t, err)

	_, err = Encode(cover(2, 2), DefaultOptions("far too long for four pixels"))
	assert.ErrorIs(t, err, lsb.ErrMessageTooLarge)
}
