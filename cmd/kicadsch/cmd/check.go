package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <schematic_file>",
	Short: "Verify the file parses and round-trips byte-exactly",
	Long: `Parse a schematic and re-emit it without modifications, then compare
the result to the original bytes. A clean document must reproduce its
file exactly; any difference indicates a parser or emitter defect.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	path := args[0]
	original, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sch, closer, err := openSchematic(path)
	if err != nil {
		return err
	}
	defer closer()

	out := sch.Render()
	if bytes.Equal(original, out) {
		fmt.Printf("%s: OK (%d bytes, %d components)\n", path, len(original), len(sch.Components()))
		return nil
	}

	// Locate the first divergent byte for the report.
	at := len(original)
	for i := 0; i < len(original) && i < len(out); i++ {
		if original[i] != out[i] {
			at = i
			break
		}
	}
	return fmt.Errorf("%s: round-trip diverges at byte %d (original %d bytes, emitted %d)",
		path, at, len(original), len(out))
}
