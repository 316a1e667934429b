package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var netlistCmd = &cobra.Command{
	Use:   "netlist <schematic_file>",
	Short: "Print the derived nets",
	Long: `Derive nets from wire geometry, junctions and labels. Pin attachments
require a symbol library (--symbol-dir); without one only labeled nets
are listed.`,
	Args: cobra.ExactArgs(1),
	RunE: runNetlist,
}

func init() {
	rootCmd.AddCommand(netlistCmd)
}

func runNetlist(cmd *cobra.Command, args []string) error {
	sch, closer, err := openSchematic(args[0])
	if err != nil {
		return err
	}
	defer closer()

	nets, err := sch.Netlist()
	if err != nil {
		return err
	}
	for _, net := range nets {
		var nodes []string
		for _, n := range net.Nodes {
			nodes = append(nodes, fmt.Sprintf("%s.%s", n.Reference, n.Pin))
		}
		fmt.Printf("%-20s %s\n", net.Name, strings.Join(nodes, " "))
	}
	return nil
}
