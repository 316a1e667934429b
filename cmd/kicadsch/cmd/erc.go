package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tracekit/kicadsch/pkg/erc"
)

var ercCmd = &cobra.Command{
	Use:   "erc <schematic_file>",
	Short: "Run electrical rule checks",
	Args:  cobra.ExactArgs(1),
	RunE:  runERC,
}

func init() {
	rootCmd.AddCommand(ercCmd)
}

func runERC(cmd *cobra.Command, args []string) error {
	sch, closer, err := openSchematic(args[0])
	if err != nil {
		return err
	}
	defer closer()

	issues := erc.Run(sch)
	errors := 0
	for _, issue := range issues {
		if issue.Severity == erc.SeverityError {
			errors++
		}
		fmt.Printf("%s: %s", issue.Severity, issue.Message)
		if len(issue.EntityRefs) > 0 {
			fmt.Printf(" [%s]", strings.Join(issue.EntityRefs, ", "))
		}
		fmt.Println()
	}
	if errors > 0 {
		return fmt.Errorf("%d error(s), %d warning(s)", errors, len(issues)-errors)
	}
	fmt.Printf("OK: %d warning(s)\n", len(issues))
	return nil
}
