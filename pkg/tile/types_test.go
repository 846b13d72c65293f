package tile

import (
	"errors"
	"math"
	"testing"
)

func TestOptionsValidate(t *testing.T) {
	testCases := []struct {
		name        string
		opts        Options
		expectedErr error
	}{
		{"defaults", Options{TileSize: DefaultTileSize}, nil},
		{"smallest tile", Options{TileSize: 1, Quality: 1}, nil},
		{"largest tile", Options{TileSize: MaxTileSize, Quality: 100}, nil},
		{"zero tile size", Options{TileSize: 0}, ErrInvalidTileSize},
		{"negative tile size", Options{TileSize: -64}, ErrInvalidTileSize},
		{"tile size above WebP limit", Options{TileSize: MaxTileSize + 1}, ErrInvalidTileSize},
		{"tile size beyond uint32", Options{TileSize: math.MaxInt}, ErrInvalidTileSize},
		{"quality too low", Options{TileSize: 64, Quality: -1}, ErrInvalidQuality},
		{"quality too high", Options{TileSize: 64, Quality: 101}, ErrInvalidQuality},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.expectedErr == nil {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.expectedErr) {
				t.Errorf("Expected %v, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestOptionsValidateDefaultsQuality(t *testing.T) {
	opts := Options{TileSize: 256}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if opts.Quality != DefaultQuality {
		t.Errorf("Expected quality %d, got %d", DefaultQuality, opts.Quality)
	}
}

func TestGridSize(t *testing.T) {
	testCases := []struct {
		width, height, tileSize uint32
		cols, rows              uint32
	}{
		{100, 100, 50, 2, 2},
		{100, 100, 64, 2, 2},
		{1, 1, 512, 1, 1},
		{513, 10, 512, 2, 1},
		{0, 0, 64, 0, 0},
	}

	for _, tc := range testCases {
		cols, rows := GridSize(tc.width, tc.height, tc.tileSize)
		if cols != tc.cols || rows != tc.rows {
			t.Errorf("GridSize(%d, %d, %d) = %d, %d; want %d, %d",
				tc.width, tc.height, tc.tileSize, cols, rows, tc.cols, tc.rows)
		}
	}
}
