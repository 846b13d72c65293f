package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time with -ldflags "-X github.com/kiesman99/tilepack/cmd.version=..."
var version = "0.1.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tilepack",
	Short: "Split page images into content-addressed tiles for deep-zoom viewers",
	Long: `tilepack partitions large page images into a grid of fixed-size square tiles,
encodes every tile (WebP by default) and names it after the hash of its encoded
bytes, so identical tiles are stored once. A metadata document describes the
tile grid of every page for the viewer.

Examples:
  # Tile two scanned pages into 512px WebP tiles
  tilepack tile page-0.jpg page-1.jpg -o out/

  # Lossless PNG tiles with BLAKE3 names
  tilepack tile scan.png --format png --hash blake3 -o out/

  # Rebuild metadata.json from a pages list
  tilepack metadata pages.json --tile-size 512 -o out/metadata.json

  # Hash a file the way tiles are named
  tilepack hash out/3f2a....webp

  # Start the HTTP binding
  tilepack serve --port 8080`,
	SilenceUsage: true,
	Version:      version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tilepack.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")

	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".tilepack" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tilepack")
	}

	// TILEPACK_TILE_SIZE overrides tile.size, TILEPACK_SERVER_PORT overrides server.port
	viper.SetEnvPrefix("tilepack")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the stderr logger at the configured level
func newLogger(cmd *cobra.Command) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
