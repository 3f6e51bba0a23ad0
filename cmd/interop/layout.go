package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/layout"
)

var layoutTarget string

var layoutCmd = &cobra.Command{
	Use:   "layout [struct]",
	Short: "Print struct offsets for a target ABI",
	Long:  "Without an argument, prints size and alignment of every catalog struct. With one, prints each field's offset.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, ok := layout.ParseTarget(layoutTarget)
		if !ok {
			return fmt.Errorf("unknown target %q (host, wasm32, lp64)", layoutTarget)
		}
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return listLayouts(cmd.OutOrStdout(), cat, target)
		}
		return printLayout(cmd.OutOrStdout(), cat, args[0], target)
	},
}

func init() {
	layoutCmd.Flags().StringVarP(&layoutTarget, "target", "t", "host", "Target ABI: host, wasm32 or lp64")
	rootCmd.AddCommand(layoutCmd)
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(optionalStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return groupStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func listLayouts(w io.Writer, cat *catalog.Catalog, target layout.Target) error {
	reg, err := cat.Layouts()
	if err != nil {
		return err
	}
	all, err := reg.CompileAll(target)
	if err != nil {
		return err
	}
	t := newTable("struct", "size", "align")
	for _, name := range reg.Names() {
		c := all[name]
		t.Row(name, strconv.FormatUint(uint64(c.Size), 10), strconv.FormatUint(uint64(c.Align), 10))
	}
	fmt.Fprintf(w, "target %s\n%s\n", target, t)
	return nil
}

func printLayout(w io.Writer, cat *catalog.Catalog, name string, target layout.Target) error {
	reg, err := cat.Layouts()
	if err != nil {
		return err
	}
	c, err := reg.Compile(name, target)
	if err != nil {
		return err
	}
	t := newTable("offset", "size", "type", "field")
	c.Walk(func(path []string, offset uint32, ct *layout.CompiledType) {
		t.Row(strconv.FormatUint(uint64(offset), 10), strconv.FormatUint(uint64(ct.Size), 10), ct.String(), strings.Join(path, "."))
	})
	fmt.Fprintf(w, "%s on %s: size %d, align %d\n%s\n", c.Name, target, c.Size, c.Align, t)
	return nil
}
