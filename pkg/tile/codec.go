package tile

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Transparent is the fill color of the padded area of edge tiles
var Transparent = color.NRGBA{R: 255, G: 255, B: 255, A: 0}

// DecodeImage sniffs the format of data and decodes it.
// Every format registered with the image package is accepted.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Err: err}
	}
	return img, format, nil
}

// Encode writes img to w in the given format.
// Quality applies to WebP and JPEG; PNG is always lossless.
func Encode(w io.Writer, img image.Image, format Format, quality int, lossless bool) error {
	switch format {
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{
			Lossless: lossless,
			Quality:  float32(quality),
		})
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unsupported tile format %s", format)
	}
}

// EncodeBytes encodes img and returns the encoded bytes.
func EncodeBytes(img image.Image, format Format, quality int, lossless bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality, lossless); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// flatten composites img over opaque white; JPEG has no alpha channel
// and would otherwise render the transparent padding black.
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	return dst
}
