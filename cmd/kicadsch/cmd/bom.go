package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var bomCSV bool

var bomCmd = &cobra.Command{
	Use:   "bom <schematic_file>",
	Short: "Print a grouped bill of materials",
	Args:  cobra.ExactArgs(1),
	RunE:  runBOM,
}

func init() {
	bomCmd.Flags().BoolVar(&bomCSV, "csv", false, "emit CSV instead of a table")
	rootCmd.AddCommand(bomCmd)
}

func runBOM(cmd *cobra.Command, args []string) error {
	sch, closer, err := openSchematic(args[0])
	if err != nil {
		return err
	}
	defer closer()

	rows := sch.BOM()
	if bomCSV {
		w := csv.NewWriter(os.Stdout)
		w.Write([]string{"References", "Quantity", "Value", "Footprint", "LibID"})
		for _, row := range rows {
			w.Write([]string{
				strings.Join(row.References, " "),
				strconv.Itoa(row.Quantity),
				row.Value,
				row.Footprint,
				row.LibID,
			})
		}
		w.Flush()
		return w.Error()
	}

	fmt.Printf("%-24s %4s  %-16s %s\n", "References", "Qty", "Value", "Footprint")
	for _, row := range rows {
		fmt.Printf("%-24s %4d  %-16s %s\n",
			strings.Join(row.References, ", "), row.Quantity, row.Value, row.Footprint)
	}
	return nil
}
