package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilepack/internal/hasher"
)

var hashCmd = &cobra.Command{
	Use:   "hash <file>...",
	Short: "Print the content hash of files",
	Long: `Print the digest of each file in the same form tiles are named by,
one "<digest>  <file>" line per file. Use - to read from stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().BoolP("short", "s", false, "print the 16 character short digest")
	hashCmd.Flags().String("hash", string(hasher.SHA256), "hash algorithm (sha256|blake3)")

	viper.BindPFlag("hash.short", hashCmd.Flags().Lookup("short"))
	viper.BindPFlag("hash.algorithm", hashCmd.Flags().Lookup("hash"))
}

func runHash(cmd *cobra.Command, args []string) error {
	alg, err := hasher.ParseAlgorithm(viper.GetString("hash.algorithm"))
	if err != nil {
		return err
	}
	h, err := hasher.New(alg)
	if err != nil {
		return err
	}
	short := viper.GetBool("hash.short")

	for _, name := range args {
		var data []byte
		if name == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(name)
		}
		if err != nil {
			return err
		}

		digest := h.Digest(data)
		if short {
			digest = h.ShortDigest(data)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", digest, name)
	}

	return nil
}
