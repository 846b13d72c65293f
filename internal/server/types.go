package server

import (
	"time"
)

// HealthStatus values
const (
	Healthy = "healthy"
)

// Error codes
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidTileSize    = "INVALID_TILE_SIZE"
	ErrCodeInvalidQuality     = "INVALID_QUALITY"
	ErrCodeDecodeError        = "DECODE_ERROR"
	ErrCodeEncodeError        = "ENCODE_ERROR"
	ErrCodeMetadataParseError = "METADATA_PARSE_ERROR"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    *int      `json:"uptime,omitempty"`
	Version   *string   `json:"version,omitempty"`
}

// TileInfo defines model for one tile of a TileResponse.
// Data is base64 encoded in JSON and only present when requested.
type TileInfo struct {
	X    uint32 `json:"x"`
	Y    uint32 `json:"y"`
	Hash string `json:"hash"`
	Data []byte `json:"data,omitempty"`
}

// TileResponse defines model for TileResponse.
type TileResponse struct {
	Width      uint32     `json:"width"`
	Height     uint32     `json:"height"`
	TileSize   uint32     `json:"tile_size"`
	Format     string     `json:"format"`
	Count      int        `json:"count"`
	Unique     int        `json:"unique"`
	Duplicates []string   `json:"duplicates"`
	Tiles      []TileInfo `json:"tiles"`
}

// HashResponse defines model for HashResponse.
type HashResponse struct {
	Algorithm string `json:"algorithm"`
	Hash      string `json:"hash"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
	Details   *map[string]interface{} `json:"details,omitempty"`
}

// TileParams defines parameters for CreateTiles.
type TileParams struct {
	TileSize    *int    `form:"tile_size,omitempty" json:"tile_size,omitempty"`
	Quality     *int    `form:"quality,omitempty" json:"quality,omitempty"`
	Format      *string `form:"format,omitempty" json:"format,omitempty"`
	Lossless    *bool   `form:"lossless,omitempty" json:"lossless,omitempty"`
	IncludeData *bool   `form:"include_data,omitempty" json:"include_data,omitempty"`
}

// MetadataParams defines parameters for CreateMetadata.
type MetadataParams struct {
	TileSize *int    `form:"tile_size,omitempty" json:"tile_size,omitempty"`
	Encoding *string `form:"encoding,omitempty" json:"encoding,omitempty"`
}

// HashParams defines parameters for CreateHash.
type HashParams struct {
	Short     *bool   `form:"short,omitempty" json:"short,omitempty"`
	Algorithm *string `form:"algorithm,omitempty" json:"algorithm,omitempty"`
}
