package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tracekit/kicadsch/pkg/sexp"
	"github.com/tracekit/kicadsch/pkg/sexp/format"
)

var fmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt <schematic_file>",
	Short: "Reformat a schematic in canonical layout",
	Long: `Regenerate the whole file in KiCad's canonical layout for its format
version, discarding the original formatting. Prints to stdout unless -w
is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runFmt,
}

func init() {
	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "write result back to the file")
	rootCmd.AddCommand(fmtCmd)
}

func runFmt(cmd *cobra.Command, args []string) error {
	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	root, err := sexp.Parse(src)
	if err != nil {
		return err
	}
	version, ok := sexp.ChildInt(root, "version")
	if !ok {
		return fmt.Errorf("%s: missing (version ...) field", path)
	}
	out := sexp.Canonical(root, format.ForVersion(version))

	if fmtWrite {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		return os.WriteFile(path, out, info.Mode().Perm())
	}
	_, err = os.Stdout.Write(out)
	return err
}
