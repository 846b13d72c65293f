package tiler

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/kiesman99/tilepack/internal/hasher"
	"github.com/kiesman99/tilepack/pkg/tile"
)

// Tiler splits images into content-addressed tiles
type Tiler struct {
	hasher *hasher.Hasher
}

// New creates a new tiler. A nil hasher selects SHA-256.
func New(h *hasher.Hasher) *Tiler {
	if h == nil {
		h = &hasher.Hasher{}
	}
	return &Tiler{hasher: h}
}

// TileImage tiles data as WebP with the default hasher.
// A quality of 0 selects tile.DefaultQuality.
func TileImage(data []byte, tileSize, quality int) (*tile.Result, error) {
	return New(nil).Tile(data, tile.Options{
		TileSize: tileSize,
		Quality:  quality,
		Format:   tile.FormatWebP,
	})
}

// Tile decodes data and partitions it into a grid of opts.TileSize squares.
// Tiles are returned in row-major order. Edge tiles are padded to the full
// tile size with transparent white. Any decode or encode failure aborts the
// whole call.
func (t *Tiler) Tile(data []byte, opts tile.Options) (*tile.Result, error) {
	// Validate before decoding so a zero size never reaches the grid math
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	img, _, err := tile.DecodeImage(data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := uint32(bounds.Dx())
	height := uint32(bounds.Dy())
	tileSize := uint32(opts.TileSize)

	tilesX, tilesY := tile.GridSize(width, height, tileSize)

	result := &tile.Result{
		Width:    width,
		Height:   height,
		TileSize: tileSize,
		Tiles:    make([]tile.Tile, 0, int(tilesX)*int(tilesY)),
	}

	seen := make(map[string]int, cap(result.Tiles))

	for ty := uint32(0); ty < tilesY; ty++ {
		for tx := uint32(0); tx < tilesX; tx++ {
			x := tx * tileSize
			y := ty * tileSize
			w := min(tileSize, width-x)
			h := min(tileSize, height-y)

			cell := cropAndPad(img, x, y, w, h, tileSize)

			encoded, err := tile.EncodeBytes(cell, opts.Format, opts.Quality, opts.Lossless)
			if err != nil {
				return nil, &tile.EncodeError{X: tx, Y: ty, Format: opts.Format, Err: err}
			}

			hash := t.hasher.Digest(encoded)

			seen[hash]++
			if seen[hash] == 2 {
				result.Duplicates = append(result.Duplicates, hash)
			}

			result.Tiles = append(result.Tiles, tile.Tile{
				X:    tx,
				Y:    ty,
				Hash: hash,
				Data: encoded,
			})
		}
	}

	return result, nil
}

// cropAndPad cuts the w x h region at (x, y) out of img. Regions smaller
// than tileSize in either dimension are placed at the top-left corner of a
// tileSize square filled with tile.Transparent.
func cropAndPad(img image.Image, x, y, w, h, tileSize uint32) image.Image {
	origin := img.Bounds().Min
	rect := image.Rect(int(x), int(y), int(x+w), int(y+h)).Add(origin)
	cropped := imaging.Crop(img, rect)

	if w >= tileSize && h >= tileSize {
		return cropped
	}

	// The canvas holds non-premultiplied bytes, so the white survives under
	// zero alpha. Paste copies the crop without blending.
	canvas := imaging.New(int(tileSize), int(tileSize), tile.Transparent)
	return imaging.Paste(canvas, cropped, image.Point{})
}
