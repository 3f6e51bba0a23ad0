package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/layout"
)

var validateCmd = &cobra.Command{
	Use:   "validate <catalog.yaml>",
	Short: "Check a catalog file against the schema and semantic rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(args[0], catalog.LoadOptions{})
		if err != nil {
			return err
		}
		reg, err := cat.Layouts()
		if err != nil {
			return err
		}
		for _, target := range []layout.Target{layout.Host, layout.Wasm32, layout.LP64} {
			if _, err := reg.CompileAll(target); err != nil {
				return fmt.Errorf("layouts for %s: %w", target, err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %s is valid (%d functions, %d structs)\n",
			args[0], cat.Name, cat.Version, len(cat.Functions), len(cat.Structs))
		return nil
	},
}

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the catalog JSON Schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if schemaOutput == "" {
			_, err := cmd.OutOrStdout().Write(catalog.Schema())
			return err
		}
		if err := os.WriteFile(schemaOutput, catalog.Schema(), 0o644); err != nil {
			return fmt.Errorf("writing schema to %s: %w", schemaOutput, err)
		}
		return nil
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Write schema to file instead of stdout")
	rootCmd.AddCommand(validateCmd, schemaCmd)
}
