package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tracekit/kicadsch/pkg/schematic"
	"github.com/tracekit/kicadsch/pkg/symbols"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kicadsch",
	Short: "KiCad schematic file tools",
	Long: `kicadsch inspects and edits KiCad schematic files (.kicad_sch)
without disturbing the parts of the file it does not touch.

Examples:
  kicadsch info project.kicad_sch          # Show schematic summary
  kicadsch check project.kicad_sch         # Verify byte-exact round-trip
  kicadsch fmt -w project.kicad_sch        # Reformat canonically
  kicadsch bom project.kicad_sch           # Grouped bill of materials
  kicadsch netlist project.kicad_sch       # Derived nets
  kicadsch erc project.kicad_sch           # Electrical rule checks`,
	Version: "1.0.0",
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("symbol-dir", "", "directory of .kicad_sym symbol libraries")
	rootCmd.PersistentFlags().String("symbol-cache", "", "sqlite symbol cache file")
	viper.BindPFlag("symbol_dir", rootCmd.PersistentFlags().Lookup("symbol-dir"))
	viper.BindPFlag("symbol_cache", rootCmd.PersistentFlags().Lookup("symbol-cache"))
}

func initConfig() {
	viper.SetConfigName("kicadsch")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.config/kicadsch")
	}
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("KICADSCH")
	viper.AutomaticEnv()

	// A missing config file is fine; flags and env cover everything.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "warning: config: %v\n", err)
		}
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// newProvider builds the symbol provider chain from config: directory
// loader, optionally fronted by the sqlite cache. Returns a nil provider
// when no symbol directory is configured.
func newProvider(log zerolog.Logger) (symbols.Provider, func(), error) {
	dir := viper.GetString("symbol_dir")
	if dir == "" {
		return nil, func() {}, nil
	}
	var provider symbols.Provider = symbols.NewDirProvider(dir, log)
	closer := func() {}
	if cachePath := viper.GetString("symbol_cache"); cachePath != "" {
		cache, err := symbols.OpenCache(cachePath, provider, log)
		if err != nil {
			return nil, nil, err
		}
		provider = cache
		closer = func() { cache.Close() }
	}
	return provider, closer, nil
}

func openSchematic(path string) (*schematic.Schematic, func(), error) {
	log := newLogger()
	provider, closer, err := newProvider(log)
	if err != nil {
		return nil, nil, err
	}
	opts := []schematic.Option{schematic.WithLogger(log)}
	if provider != nil {
		opts = append(opts, schematic.WithSymbolProvider(provider))
	}
	sch, err := schematic.Load(path, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return sch, closer, nil
}
