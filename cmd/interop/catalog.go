package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/native-interop/catalog"
)

var (
	groupStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	funcStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	typeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	optionalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
)

var catalogGroup string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List catalog functions by group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		return listCatalog(cmd.OutOrStdout(), cat, catalogGroup)
	},
}

func init() {
	catalogCmd.Flags().StringVarP(&catalogGroup, "group", "g", "", "Only list this group")
	rootCmd.AddCommand(catalogCmd)
}

func listCatalog(w io.Writer, cat *catalog.Catalog, only string) error {
	groups := cat.Groups()
	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	slices.Sort(names)
	if only != "" {
		if _, ok := groups[only]; !ok {
			return fmt.Errorf("no group %q in catalog %s", only, cat.Name)
		}
		names = []string{only}
	}

	fmt.Fprintf(w, "%s %s: %d functions, %d callbacks, %d structs, %d enums, %d flag sets\n",
		cat.Name, cat.Version, len(cat.Functions), len(cat.Callbacks), len(cat.Structs), len(cat.Enums), len(cat.Flags))
	for _, g := range names {
		fmt.Fprintf(w, "\n%s\n", groupStyle.Render(g))
		for _, name := range groups[g] {
			f, _ := cat.Function(name)
			line := "  " + funcStyle.Render(f.Name) + typeStyle.Render(signature(f))
			if f.Optional {
				line += " " + optionalStyle.Render("(optional)")
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func signature(f catalog.Function) string {
	ret := f.Returns
	if ret == "" {
		ret = "void"
	}
	return "(" + strings.Join(f.Params, ", ") + ") " + ret
}
