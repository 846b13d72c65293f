package tile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTileSize is returned for a tile size outside 1-MaxTileSize
	ErrInvalidTileSize = errors.New("invalid tile size")

	// ErrInvalidQuality is returned for a quality outside 1-100
	ErrInvalidQuality = errors.New("invalid quality")

	// ErrIndexOutOfBounds is returned by Result.Tile
	ErrIndexOutOfBounds = errors.New("tile index out of bounds")
)

// DecodeError represents a source image that could not be decoded
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError represents a tile that could not be encoded
type EncodeError struct {
	X, Y   uint32
	Format Format
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode tile (%d,%d) as %s: %v", e.X, e.Y, e.Format, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
