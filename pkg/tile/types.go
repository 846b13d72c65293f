package tile

import (
	"fmt"
	"strings"
)

// Default tiling parameters
const (
	DefaultTileSize = 512
	DefaultQuality  = 80

	// MaxTileSize is the largest edge WebP can encode
	MaxTileSize = 16383
)

// Format identifies the compressed image format tiles are encoded to
type Format int

// Tile format constants
const (
	FormatWebP Format = iota
	FormatPNG
	FormatJPEG
)

// String returns the lowercase name of the format.
func (f Format) String() string {
	switch f {
	case FormatWebP:
		return "webp"
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// Ext returns the file extension used for tiles of this format.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + f.String()
}

// ContentType returns the MIME type of tiles of this format.
func (f Format) ContentType() string {
	return "image/" + f.String()
}

// Set implements pflag.Value.
func (f *Format) Set(s string) error {
	parsed, err := ParseFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Type implements pflag.Value.
func (f *Format) Type() string {
	return "format"
}

// ParseFormat parses a tile format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "webp":
		return FormatWebP, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return 0, fmt.Errorf("unknown tile format: %q", s)
	}
}

// Options contains the parameters of one tiling call
type Options struct {
	TileSize int
	Quality  int // 1-100, zero means DefaultQuality
	Format   Format
	Lossless bool // WebP only
}

// Validate checks the options and fills in defaults.
func (o *Options) Validate() error {
	if err := ValidateTileSize(o.TileSize); err != nil {
		return err
	}
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Quality < 1 || o.Quality > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidQuality, o.Quality)
	}
	switch o.Format {
	case FormatWebP, FormatPNG, FormatJPEG:
	default:
		return fmt.Errorf("unsupported tile format %s", o.Format)
	}
	return nil
}

// ValidateTileSize checks that size is within 1 and MaxTileSize.
func ValidateTileSize(size int) error {
	if size <= 0 || size > MaxTileSize {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidTileSize, size, MaxTileSize)
	}
	return nil
}

// Tile is one cell of a page's tile grid
type Tile struct {
	X    uint32 // grid column
	Y    uint32 // grid row
	Hash string // digest of Data
	Data []byte // encoded tile image
}

// Result holds the tiles of one image
type Result struct {
	Width    uint32
	Height   uint32
	TileSize uint32
	Tiles    []Tile // row-major

	// Duplicates lists each hash seen more than once, in the order
	// the first repeat was encountered. Tiles keep their payloads.
	Duplicates []string
}

// Count returns the number of tiles.
func (r *Result) Count() int {
	return len(r.Tiles)
}

// Unique returns the number of distinct tile hashes.
func (r *Result) Unique() int {
	seen := make(map[string]struct{}, len(r.Tiles))
	for _, t := range r.Tiles {
		seen[t.Hash] = struct{}{}
	}
	return len(seen)
}

// Tile returns the tile at index i in row-major order.
func (r *Result) Tile(i int) (Tile, error) {
	if i < 0 || i >= len(r.Tiles) {
		return Tile{}, fmt.Errorf("%w: %d (count %d)", ErrIndexOutOfBounds, i, len(r.Tiles))
	}
	return r.Tiles[i], nil
}

// GridSize returns the number of tile columns and rows for an image.
func GridSize(width, height, tileSize uint32) (uint32, uint32) {
	if tileSize == 0 {
		return 0, 0
	}
	return (width + tileSize - 1) / tileSize, (height + tileSize - 1) / tileSize
}
