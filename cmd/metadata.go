package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilepack/internal/metadata"
	"github.com/kiesman99/tilepack/pkg/tile"
)

var metadataCmd = &cobra.Command{
	Use:   "metadata <pages.json|->",
	Short: "Assemble the metadata document from a list of pages",
	Long: `Read a JSON array of pages ({page, width, height, tiles: [{x, y, hash}]})
and write the metadata document {version, tile_size, pages}. Comments and
trailing commas are allowed in the input. Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetadata,
}

func init() {
	rootCmd.AddCommand(metadataCmd)

	metadataCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	metadataCmd.Flags().IntP("tile-size", "t", tile.DefaultTileSize, "tile size recorded in the document")
	metadataCmd.Flags().String("encoding", "json", "document encoding (json|cbor)")
	metadataCmd.Flags().String("compress", "none", "compression (none|zstd)")

	viper.BindPFlag("metadata.output", metadataCmd.Flags().Lookup("output"))
	viper.BindPFlag("metadata.tile-size", metadataCmd.Flags().Lookup("tile-size"))
	viper.BindPFlag("metadata.encoding", metadataCmd.Flags().Lookup("encoding"))
	viper.BindPFlag("metadata.compress", metadataCmd.Flags().Lookup("compress"))
}

func runMetadata(cmd *cobra.Command, args []string) error {
	tileSize := viper.GetInt("metadata.tile-size")
	if err := tile.ValidateTileSize(tileSize); err != nil {
		return err
	}

	enc, err := metadata.ParseEncoding(viper.GetString("metadata.encoding"))
	if err != nil {
		return err
	}
	comp, err := metadata.ParseCompression(viper.GetString("metadata.compress"))
	if err != nil {
		return err
	}

	var input []byte
	if args[0] == "-" {
		input, err = io.ReadAll(cmd.InOrStdin())
	} else {
		input, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read pages: %w", err)
	}

	pages, err := metadata.ParsePages(input)
	if err != nil {
		return err
	}

	doc := metadata.Assemble(pages, uint32(tileSize))

	output := viper.GetString("metadata.output")
	if output == "" {
		return doc.Encode(cmd.OutOrStdout(), enc, comp)
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := doc.Encode(f, enc, comp); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Metadata for %d pages written to '%s'.\n", len(doc.Pages), output)
	return nil
}
