package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ssargent/bootdesc/pkg/codec"
)

// checksumCmd represents the checksum command
var checksumCmd = &cobra.Command{
	Use:   "checksum [hex-bytes]",
	Short: "Compute the descriptor CRC of arbitrary bytes",
	Long: `Compute the CRC-32/CKSUM checksum used by the region header and
descriptors over hex-encoded bytes or the contents of a file.

Examples:
  bootdesc checksum 313233343536373839
  bootdesc checksum "22 22 22 22"
  bootdesc checksum --file ./descriptor.bin`,
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: skipConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")

		var data []byte
		switch {
		case path != "" && len(args) > 0:
			return fmt.Errorf("pass either hex bytes or --file, not both")
		case path != "":
			var err error
			data, err = os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
		case len(args) == 1:
			var err error
			data, err = decodeHexArg(args[0])
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("pass hex bytes or --file")
		}

		cmd.Printf("0x%08X\n", codec.Checksum(data))
		return nil
	},
}

// decodeHexArg accepts an optional 0x prefix and ignores whitespace
func decodeHexArg(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex bytes: %w", err)
	}
	return data, nil
}

func init() {
	rootCmd.AddCommand(checksumCmd)
	checksumCmd.Flags().String("file", "", "Checksum the contents of this file")
}
