package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/native-interop/callback"
	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/handle"
	"github.com/wippyai/native-interop/native/dl"
	"github.com/wippyai/native-interop/native/wasm"
)

var (
	catalogPath string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "interop",
	Short: "Inspect and probe C-ABI library catalogs",
	Long: "interop lists the functions, struct layouts, enums and flags of a library catalog, " +
		"validates catalog files and checks a real library against one.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "", "Catalog YAML file (default: embedded SDL catalog)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) error {
	if !debug {
		return nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	callback.SetLogger(l.Named("callback"))
	catalog.SetLogger(l.Named("catalog"))
	handle.SetLogger(l.Named("handle"))
	dl.SetLogger(l.Named("dl"))
	wasm.SetLogger(l.Named("wasm"))
	return nil
}

func loadCatalog() (*catalog.Catalog, error) {
	if catalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(catalogPath, catalog.LoadOptions{})
}
