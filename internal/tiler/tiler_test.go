package tiler

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/kiesman99/tilepack/internal/hasher"
	"github.com/kiesman99/tilepack/pkg/tile"
)

// encodePNG builds a w x h PNG filled by fill(x, y)
func encodePNG(t *testing.T, w, h int, fill func(x, y int) color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func solid(c color.Color) func(x, y int) color.Color {
	return func(int, int) color.Color { return c }
}

// gradient gives every pixel a distinct color so no two tiles match
func gradient(x, y int) color.Color {
	return color.NRGBA{R: uint8(x), G: uint8(y), B: uint8(x ^ y), A: 255}
}

func TestTileImage(t *testing.T) {
	data := encodePNG(t, 100, 100, solid(color.White))

	result, err := TileImage(data, 50, 80)
	if err != nil {
		t.Fatalf("Failed to tile image: %v", err)
	}

	if result.Width != 100 || result.Height != 100 {
		t.Errorf("Expected 100x100, got %dx%d", result.Width, result.Height)
	}
	if result.TileSize != 50 {
		t.Errorf("Expected tile size 50, got %d", result.TileSize)
	}
	if len(result.Tiles) != 4 {
		t.Fatalf("Expected 4 tiles, got %d", len(result.Tiles))
	}

	expected := [][2]uint32{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, tl := range result.Tiles {
		if tl.X != expected[i][0] || tl.Y != expected[i][1] {
			t.Errorf("Tile %d: expected (%d,%d), got (%d,%d)", i, expected[i][0], expected[i][1], tl.X, tl.Y)
		}
		if tl.Hash != hasher.Digest(tl.Data) {
			t.Errorf("Tile %d: hash does not match its data", i)
		}
	}
}

func TestTileCountAndDimensions(t *testing.T) {
	testCases := []struct {
		name          string
		width, height int
		tileSize      int
		format        tile.Format
		expected      int
	}{
		{"exact grid", 100, 100, 50, tile.FormatWebP, 4},
		{"padded grid", 100, 100, 64, tile.FormatWebP, 4},
		{"wide", 130, 70, 64, tile.FormatWebP, 6},
		{"tile larger than image", 30, 20, 64, tile.FormatPNG, 1},
		{"single column", 10, 200, 64, tile.FormatJPEG, 4},
		{"one pixel tiles", 3, 2, 1, tile.FormatPNG, 6},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := encodePNG(t, tc.width, tc.height, gradient)

			result, err := New(nil).Tile(data, tile.Options{TileSize: tc.tileSize, Format: tc.format})
			if err != nil {
				t.Fatalf("Failed to tile image: %v", err)
			}

			if len(result.Tiles) != tc.expected {
				t.Fatalf("Expected %d tiles, got %d", tc.expected, len(result.Tiles))
			}

			for i, tl := range result.Tiles {
				cfg, format, err := image.DecodeConfig(bytes.NewReader(tl.Data))
				if err != nil {
					t.Fatalf("Tile %d: failed to decode: %v", i, err)
				}
				if format != tc.format.String() {
					t.Errorf("Tile %d: expected format %s, got %s", i, tc.format, format)
				}
				if cfg.Width != tc.tileSize || cfg.Height != tc.tileSize {
					t.Errorf("Tile %d: expected %dx%d, got %dx%d", i, tc.tileSize, tc.tileSize, cfg.Width, cfg.Height)
				}
			}
		})
	}
}

func TestTileDeterminism(t *testing.T) {
	data := encodePNG(t, 150, 90, gradient)
	opts := tile.Options{TileSize: 64, Quality: 75}

	first, err := New(nil).Tile(data, opts)
	if err != nil {
		t.Fatalf("Failed to tile image: %v", err)
	}
	second, err := New(nil).Tile(data, opts)
	if err != nil {
		t.Fatalf("Failed to tile image: %v", err)
	}

	if len(first.Tiles) != len(second.Tiles) {
		t.Fatalf("Tile counts differ: %d vs %d", len(first.Tiles), len(second.Tiles))
	}
	for i := range first.Tiles {
		if first.Tiles[i].Hash != second.Tiles[i].Hash {
			t.Errorf("Tile %d: hash changed between runs", i)
		}
	}
}

func TestTileInvalidTileSize(t *testing.T) {
	data := encodePNG(t, 10, 10, gradient)

	// Sizes above MaxTileSize would otherwise wrap when narrowed to uint32
	for _, size := range []int{0, -1, tile.MaxTileSize + 1, math.MaxInt} {
		_, err := TileImage(data, size, 0)
		if !errors.Is(err, tile.ErrInvalidTileSize) {
			t.Errorf("Tile size %d: expected ErrInvalidTileSize, got %v", size, err)
		}
	}

	// The size is rejected before the bytes are looked at
	_, err := TileImage([]byte("garbage"), 0, 0)
	if !errors.Is(err, tile.ErrInvalidTileSize) {
		t.Errorf("Expected ErrInvalidTileSize, got %v", err)
	}
}

func TestTileInvalidQuality(t *testing.T) {
	data := encodePNG(t, 10, 10, gradient)

	for _, q := range []int{-5, 101} {
		_, err := TileImage(data, 8, q)
		if !errors.Is(err, tile.ErrInvalidQuality) {
			t.Errorf("Quality %d: expected ErrInvalidQuality, got %v", q, err)
		}
	}
}

func TestTileDecodeError(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("not an image at all")},
		{"truncated png", encodePNG(t, 20, 20, gradient)[:40]},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := TileImage(tc.data, 16, 0)
			if result != nil {
				t.Error("Expected no partial result")
			}
			var decodeErr *tile.DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("Expected DecodeError, got %v", err)
			}
			if decodeErr.Err == nil || decodeErr.Error() == "" {
				t.Error("Expected the codec diagnostic to be carried")
			}
		})
	}
}

func TestTileDuplicates(t *testing.T) {
	data := encodePNG(t, 200, 200, solid(color.White))

	result, err := New(nil).Tile(data, tile.Options{TileSize: 50, Format: tile.FormatPNG})
	if err != nil {
		t.Fatalf("Failed to tile image: %v", err)
	}

	if len(result.Tiles) != 16 {
		t.Fatalf("Expected 16 tiles, got %d", len(result.Tiles))
	}
	if result.Unique() != 1 {
		t.Errorf("Expected 1 unique tile, got %d", result.Unique())
	}
	if len(result.Duplicates) != 1 || result.Duplicates[0] != result.Tiles[0].Hash {
		t.Errorf("Expected the single repeated hash, got %v", result.Duplicates)
	}

	// Repeated tiles still carry their payload
	for i, tl := range result.Tiles {
		if len(tl.Data) == 0 {
			t.Errorf("Tile %d: expected data", i)
		}
	}
}

func TestTileNoDuplicates(t *testing.T) {
	data := encodePNG(t, 128, 128, gradient)

	result, err := New(nil).Tile(data, tile.Options{TileSize: 32, Format: tile.FormatPNG})
	if err != nil {
		t.Fatalf("Failed to tile image: %v", err)
	}
	if len(result.Duplicates) != 0 {
		t.Errorf("Expected no duplicates, got %v", result.Duplicates)
	}
	if result.Unique() != result.Count() {
		t.Errorf("Expected %d unique tiles, got %d", result.Count(), result.Unique())
	}
}

func TestTileWithBLAKE3(t *testing.T) {
	h, err := hasher.New(hasher.BLAKE3)
	if err != nil {
		t.Fatalf("Failed to create hasher: %v", err)
	}
	data := encodePNG(t, 64, 64, gradient)

	result, err := New(h).Tile(data, tile.Options{TileSize: 64, Format: tile.FormatPNG})
	if err != nil {
		t.Fatalf("Failed to tile image: %v", err)
	}
	if got := result.Tiles[0].Hash; got != h.Digest(result.Tiles[0].Data) {
		t.Errorf("Expected BLAKE3 digest, got %s", got)
	}
}

func TestCropAndPad(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	data := encodePNG(t, 100, 100, solid(red))
	img, _, err := tile.DecodeImage(data)
	if err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}

	t.Run("edge tile is padded", func(t *testing.T) {
		out := cropAndPad(img, 64, 64, 36, 36, 64)

		if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
			t.Fatalf("Expected 64x64, got %v", out.Bounds())
		}
		if got := color.NRGBAModel.Convert(out.At(10, 10)); got != red {
			t.Errorf("Expected source pixel %v, got %v", red, got)
		}
		if got := color.NRGBAModel.Convert(out.At(50, 50)); got != tile.Transparent {
			t.Errorf("Expected padding %v, got %v", tile.Transparent, got)
		}
		if got := color.NRGBAModel.Convert(out.At(10, 50)); got != tile.Transparent {
			t.Errorf("Expected padding below the crop, got %v", got)
		}
	})

	t.Run("full tile is not padded", func(t *testing.T) {
		out := cropAndPad(img, 0, 0, 64, 64, 64)
		if out.Bounds().Dx() != 64 || out.Bounds().Dy() != 64 {
			t.Fatalf("Expected 64x64, got %v", out.Bounds())
		}
		if got := color.NRGBAModel.Convert(out.At(63, 63)); got != red {
			t.Errorf("Expected source pixel, got %v", got)
		}
	})
}

func TestPaddedTilePixels(t *testing.T) {
	blue := color.NRGBA{B: 255, A: 255}
	data := encodePNG(t, 100, 100, solid(blue))

	result, err := New(nil).Tile(data, tile.Options{TileSize: 64, Format: tile.FormatPNG})
	if err != nil {
		t.Fatalf("Failed to tile image: %v", err)
	}

	// Tile (1,1) covers pixels 64..99 in both directions
	last, err := result.Tile(3)
	if err != nil {
		t.Fatalf("Failed to get tile: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(last.Data))
	if err != nil {
		t.Fatalf("Failed to decode tile: %v", err)
	}
	if got := color.NRGBAModel.Convert(img.At(35, 35)); got != blue {
		t.Errorf("Expected %v inside the crop, got %v", blue, got)
	}
	for _, p := range []image.Point{{36, 36}, {63, 0}, {0, 63}} {
		if got := color.NRGBAModel.Convert(img.At(p.X, p.Y)); got != tile.Transparent {
			t.Errorf("Expected padding %v at %v, got %v", tile.Transparent, p, got)
		}
	}

	// Tile (0,0) is full and opaque everywhere
	first, _ := result.Tile(0)
	img, err = png.Decode(bytes.NewReader(first.Data))
	if err != nil {
		t.Fatalf("Failed to decode tile: %v", err)
	}
	if _, _, _, a := img.At(63, 63).RGBA(); a != 0xffff {
		t.Errorf("Expected opaque pixel, got alpha %d", a)
	}
}

func TestResultTileIndex(t *testing.T) {
	data := encodePNG(t, 20, 20, gradient)
	result, err := New(nil).Tile(data, tile.Options{TileSize: 10, Format: tile.FormatPNG})
	if err != nil {
		t.Fatalf("Failed to tile image: %v", err)
	}

	for _, i := range []int{-1, 4, 100} {
		if _, err := result.Tile(i); !errors.Is(err, tile.ErrIndexOutOfBounds) {
			t.Errorf("Index %d: expected ErrIndexOutOfBounds, got %v", i, err)
		}
	}
	tl, err := result.Tile(2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if tl.X != 0 || tl.Y != 1 {
		t.Errorf("Expected tile (0,1), got (%d,%d)", tl.X, tl.Y)
	}
}
