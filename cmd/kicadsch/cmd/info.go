package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tracekit/kicadsch/pkg/schematic"
)

var infoCmd = &cobra.Command{
	Use:   "info <schematic_file> [reference]",
	Short: "Show schematic information",
	Long: `Display information about a KiCad schematic file.

Without a reference argument: shows a schematic summary
With a reference argument: shows details for that component`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	sch, closer, err := openSchematic(args[0])
	if err != nil {
		return err
	}
	defer closer()

	if len(args) >= 2 {
		return showComponentDetails(sch, args[1])
	}
	showSummary(sch, args[0])
	return nil
}

func showSummary(sch *schematic.Schematic, filename string) {
	fmt.Printf("Schematic: %s\n", filename)
	fmt.Printf("Version: %d\n", sch.Version())
	fmt.Printf("Generator: %s\n", sch.Generator())
	fmt.Printf("Paper: %s\n", sch.Paper())
	fmt.Println()

	fmt.Println("Statistics:")
	fmt.Printf("  Components: %d\n", len(sch.Components()))
	fmt.Printf("  Wires: %d\n", len(sch.Wires()))
	fmt.Printf("  Junctions: %d\n", len(sch.Junctions()))
	fmt.Printf("  Labels: %d\n", len(sch.Labels()))
	fmt.Printf("  No-connects: %d\n", len(sch.NoConnects()))
	fmt.Printf("  Sheets: %d\n", len(sch.Sheets()))
	fmt.Printf("  Texts: %d\n", len(sch.Texts()))
	fmt.Println()

	comps := sch.Components()
	if len(comps) == 0 {
		return
	}

	// Group references by prefix
	byPrefix := make(map[string][]string)
	for _, c := range comps {
		ref := c.Reference()
		prefix := strings.TrimRight(ref, "0123456789")
		byPrefix[prefix] = append(byPrefix[prefix], ref)
	}
	var prefixes []string
	for p := range byPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	fmt.Println("Components:")
	for _, prefix := range prefixes {
		refs := byPrefix[prefix]
		sort.Strings(refs)
		fmt.Printf("  %s: %s\n", prefix, strings.Join(refs, ", "))
	}
}

func showComponentDetails(sch *schematic.Schematic, ref string) error {
	c, ok, err := sch.ComponentByReference(ref)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no component %q in schematic", ref)
	}

	fmt.Printf("Component: %s\n", c.Reference())
	fmt.Printf("  Library: %s\n", c.LibID())
	fmt.Printf("  Value: %s\n", c.Value())
	if fp := c.Footprint(); fp != "" {
		fmt.Printf("  Footprint: %s\n", fp)
	}
	pos := c.Position()
	fmt.Printf("  Position: (%.2f, %.2f) rotation %d\n", pos.X, pos.Y, c.Rotation())
	fmt.Printf("  UUID: %s\n", c.UUID())
	fmt.Printf("  In BOM: %v  On board: %v  DNP: %v\n", c.InBOM(), c.OnBoard(), c.DNP())

	if props := c.Properties(); len(props) > 0 {
		fmt.Println("  Properties:")
		for _, p := range props {
			fmt.Printf("    %s: %s\n", p.Name, p.Value)
		}
	}
	if pins := c.Pins(); len(pins) > 0 {
		fmt.Printf("  Pins: %d\n", len(pins))
	}
	return nil
}
