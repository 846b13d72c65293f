// Package export tiles a set of page images and writes the tiles and the
// metadata document to a directory. Tiles are written once per distinct
// name, so repeated content across pages is stored a single time.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kiesman99/tilepack/internal/hasher"
	"github.com/kiesman99/tilepack/internal/metadata"
	"github.com/kiesman99/tilepack/internal/tiler"
	"github.com/kiesman99/tilepack/pkg/tile"
)

// Options contains all configuration for an export
type Options struct {
	OutputDir   string
	Tile        tile.Options
	Hash        hasher.Algorithm
	ShortNames  bool // name tiles by the 16 character short digest
	Workers     int  // pages tiled concurrently, default 1
	Encoding    metadata.Encoding
	Compression metadata.Compression
	Progress    io.Writer // nil disables progress output
}

// Summary reports what an export did
type Summary struct {
	Pages        int
	Tiles        int
	Written      int
	Skipped      int // tiles whose file already existed
	MetadataPath string
}

// Exporter handles tiling pages into a directory
type Exporter struct {
	tiler   *tiler.Tiler
	options Options
	mu      sync.Mutex // guards Progress
}

// NewExporter creates a new exporter instance
func NewExporter(opts Options) (*Exporter, error) {
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := opts.Tile.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Encoding == "" {
		opts.Encoding = metadata.JSON
	}
	if opts.Compression == "" {
		opts.Compression = metadata.None
	}

	h, err := hasher.New(opts.Hash)
	if err != nil {
		return nil, err
	}

	return &Exporter{
		tiler:   tiler.New(h),
		options: opts,
	}, nil
}

// ExportFiles tiles each file as one page, numbered in argument order
func (e *Exporter) ExportFiles(ctx context.Context, paths []string) (*Summary, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input images")
	}

	results := make([]*tile.Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.Workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}

			result, err := e.tiler.Tile(data, e.options.Tile)
			if err != nil {
				return fmt.Errorf("page %d (%s): %w", i, path, err)
			}

			e.progress("page %d: %s %dx%d -> %d tiles (%d unique)\n",
				i, path, result.Width, result.Height, result.Count(), result.Unique())

			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return e.Write(results)
}

// Write stores the tiles of results and their metadata document
func (e *Exporter) Write(results []*tile.Result) (*Summary, error) {
	if err := os.MkdirAll(e.options.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	summary := &Summary{Pages: len(results)}
	pages := make([]metadata.PageInfo, len(results))
	written := make(map[string]struct{})

	for i, result := range results {
		page := metadata.PageFromResult(uint32(i), result)

		for j, t := range result.Tiles {
			summary.Tiles++

			name := e.tileName(t.Hash)
			page.Tiles[j].Hash = name

			if _, ok := written[name]; ok {
				continue
			}
			written[name] = struct{}{}

			path := filepath.Join(e.options.OutputDir, name+e.options.Tile.Format.Ext())
			if _, err := os.Stat(path); err == nil {
				summary.Skipped++
				continue
			}
			if err := os.WriteFile(path, t.Data, 0o644); err != nil {
				return nil, fmt.Errorf("write tile: %w", err)
			}
			summary.Written++
		}

		pages[i] = page
	}

	doc := metadata.Assemble(pages, uint32(e.options.Tile.TileSize))

	summary.MetadataPath = filepath.Join(e.options.OutputDir, metadata.Filename(e.options.Encoding, e.options.Compression))
	f, err := os.Create(summary.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("create metadata: %w", err)
	}
	if err := doc.Encode(f, e.options.Encoding, e.options.Compression); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close metadata: %w", err)
	}

	e.progress("wrote %d tiles (%d already present, %d repeats) and %s\n",
		summary.Written, summary.Skipped, summary.Tiles-summary.Written-summary.Skipped, summary.MetadataPath)

	return summary, nil
}

// tileName is the file name stem of a tile. Short names are a prefix of
// the full digest, so the metadata stays consistent with the files.
func (e *Exporter) tileName(hash string) string {
	if e.options.ShortNames && len(hash) > hasher.ShortLength {
		return hash[:hasher.ShortLength]
	}
	return hash
}

func (e *Exporter) progress(format string, args ...any) {
	if e.options.Progress != nil {
		e.mu.Lock()
		defer e.mu.Unlock()
		fmt.Fprintf(e.options.Progress, format, args...)
	}
}
