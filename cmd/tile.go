package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilepack/internal/export"
	"github.com/kiesman99/tilepack/internal/hasher"
	"github.com/kiesman99/tilepack/internal/metadata"
	"github.com/kiesman99/tilepack/pkg/tile"
)

var tileFormat = tile.FormatWebP

var tileCmd = &cobra.Command{
	Use:   "tile <image>...",
	Short: "Tile page images into a directory",
	Long: `Tile each image as one page (numbered in argument order) and write every
distinct tile to the output directory as <hash>.<ext>, followed by the metadata
document describing all pages.

Tiles already present in the output directory are not rewritten, so several
runs into the same directory share identical tiles.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTile,
}

func init() {
	rootCmd.AddCommand(tileCmd)

	// Output options
	tileCmd.Flags().StringP("output", "o", "tiles", "output directory")
	tileCmd.Flags().String("metadata-format", "json", "metadata encoding (json|cbor)")
	tileCmd.Flags().String("compress", "none", "metadata compression (none|zstd)")
	tileCmd.Flags().Bool("short-names", false, "name tiles by the 16 character short hash")

	// Tile options
	tileCmd.Flags().IntP("tile-size", "t", tile.DefaultTileSize, "tile size in pixels")
	tileCmd.Flags().IntP("quality", "q", tile.DefaultQuality, "encoding quality (1-100)")
	tileCmd.Flags().VarP(&tileFormat, "format", "f", "tile format (webp|png|jpeg)")
	tileCmd.Flags().Bool("lossless", false, "lossless WebP")
	tileCmd.Flags().String("hash", string(hasher.SHA256), "hash algorithm (sha256|blake3)")
	tileCmd.Flags().IntP("workers", "j", runtime.NumCPU(), "pages tiled concurrently")

	// Bind flags to viper
	viper.BindPFlag("tile.output", tileCmd.Flags().Lookup("output"))
	viper.BindPFlag("tile.metadata-format", tileCmd.Flags().Lookup("metadata-format"))
	viper.BindPFlag("tile.compress", tileCmd.Flags().Lookup("compress"))
	viper.BindPFlag("tile.short-names", tileCmd.Flags().Lookup("short-names"))
	viper.BindPFlag("tile.size", tileCmd.Flags().Lookup("tile-size"))
	viper.BindPFlag("tile.quality", tileCmd.Flags().Lookup("quality"))
	viper.BindPFlag("tile.format", tileCmd.Flags().Lookup("format"))
	viper.BindPFlag("tile.lossless", tileCmd.Flags().Lookup("lossless"))
	viper.BindPFlag("tile.hash", tileCmd.Flags().Lookup("hash"))
	viper.BindPFlag("tile.workers", tileCmd.Flags().Lookup("workers"))
}

// tileOptionsFromConfig reads the tiling parameters shared by tile and serve
func tileOptionsFromConfig() (tile.Options, hasher.Algorithm, error) {
	format, err := tile.ParseFormat(viper.GetString("tile.format"))
	if err != nil {
		return tile.Options{}, "", err
	}
	alg, err := hasher.ParseAlgorithm(viper.GetString("tile.hash"))
	if err != nil {
		return tile.Options{}, "", err
	}
	opts := tile.Options{
		TileSize: viper.GetInt("tile.size"),
		Quality:  viper.GetInt("tile.quality"),
		Format:   format,
		Lossless: viper.GetBool("tile.lossless"),
	}
	return opts, alg, nil
}

func runTile(cmd *cobra.Command, args []string) error {
	opts, alg, err := tileOptionsFromConfig()
	if err != nil {
		return err
	}

	enc, err := metadata.ParseEncoding(viper.GetString("tile.metadata-format"))
	if err != nil {
		return err
	}
	comp, err := metadata.ParseCompression(viper.GetString("tile.compress"))
	if err != nil {
		return err
	}

	logger := newLogger(cmd)

	exp, err := export.NewExporter(export.Options{
		OutputDir:   viper.GetString("tile.output"),
		Tile:        opts,
		Hash:        alg,
		ShortNames:  viper.GetBool("tile.short-names"),
		Workers:     viper.GetInt("tile.workers"),
		Encoding:    enc,
		Compression: comp,
		Progress:    cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	logger.Debug("tiling pages",
		"pages", len(args),
		"tile_size", opts.TileSize,
		"quality", opts.Quality,
		"format", opts.Format.String(),
		"hash", string(alg))

	summary, err := exp.ExportFiles(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("tiling failed: %w", err)
	}

	logger.Info("export complete",
		"pages", summary.Pages,
		"tiles", summary.Tiles,
		"written", summary.Written,
		"skipped", summary.Skipped,
		"metadata", summary.MetadataPath)

	return nil
}
