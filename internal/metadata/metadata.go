// Package metadata assembles the document that describes the tile grids
// of a set of pages. The document carries coordinates and hashes only;
// tile bytes are stored by the caller under their hash.
package metadata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kiesman99/tilepack/pkg/tile"
)

// TileMetadata is the position and content hash of one tile.
type TileMetadata struct {
	X    uint32 `json:"x"`
	Y    uint32 `json:"y"`
	Hash string `json:"hash"`
}

// PageInfo describes the tile grid of one page.
type PageInfo struct {
	Page   uint32         `json:"page"`
	Width  uint32         `json:"width"`
	Height uint32         `json:"height"`
	Tiles  []TileMetadata `json:"tiles"`
}

// Document is the metadata of a full tiled page set. Version is the
// assembly time in Unix milliseconds and changes on every assembly.
type Document struct {
	Version  int64      `json:"version"`
	TileSize uint32     `json:"tile_size"`
	Pages    []PageInfo `json:"pages"`
}

// ParseError reports pages input that could not be parsed.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse pages: %s", e.Message)
}

// Assembler builds documents. Now defaults to time.Now.
type Assembler struct {
	Now func() time.Time
}

// Assemble builds a document from pages. The clock is read once.
func (a *Assembler) Assemble(pages []PageInfo, tileSize uint32) *Document {
	now := time.Now
	if a != nil && a.Now != nil {
		now = a.Now
	}
	if pages == nil {
		pages = []PageInfo{}
	}
	return &Document{
		Version:  now().UnixMilli(),
		TileSize: tileSize,
		Pages:    pages,
	}
}

// Assemble builds a document stamped with the current time.
func Assemble(pages []PageInfo, tileSize uint32) *Document {
	return (*Assembler)(nil).Assemble(pages, tileSize)
}

// PageFromResult describes a tiling result as page number page.
func PageFromResult(page uint32, r *tile.Result) PageInfo {
	tiles := make([]TileMetadata, len(r.Tiles))
	for i, t := range r.Tiles {
		tiles[i] = TileMetadata{X: t.X, Y: t.Y, Hash: t.Hash}
	}
	return PageInfo{
		Page:   page,
		Width:  r.Width,
		Height: r.Height,
		Tiles:  tiles,
	}
}

// Generate parses pagesJSON and returns the indented JSON document.
func Generate(pagesJSON []byte, tileSize uint32) ([]byte, error) {
	pages, err := ParsePages(pagesJSON)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(Assemble(pages, tileSize), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize metadata: %w", err)
	}
	return out, nil
}
