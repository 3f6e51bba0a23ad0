package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wippyai/native-interop/catalog"
)

var enumCmd = &cobra.Command{
	Use:   "enum <name> [value]",
	Short: "Show an enum or flag set, or decode a value",
	Long: "Lists the constants of a catalog enum or flag set. Given a value, prints its name; " +
		"flag values print as NAME|NAME and a name expression prints its number.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		value := ""
		if len(args) == 2 {
			value = args[1]
		}
		return showEnum(cmd.OutOrStdout(), cat, args[0], value)
	},
}

func init() {
	rootCmd.AddCommand(enumCmd)
}

func showEnum(w io.Writer, cat *catalog.Catalog, name, value string) error {
	if f, err := cat.FlagSet(name); err == nil {
		if value == "" {
			for _, n := range f.Names() {
				bit, _ := f.Bit(n)
				fmt.Fprintf(w, "%-40s %#x\n", n, bit)
			}
			return nil
		}
		if v, err := strconv.ParseUint(value, 0, 64); err == nil {
			fmt.Fprintln(w, f.Format(v))
			return nil
		}
		v, err := f.Parse(value)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%#x\n", v)
		return nil
	}

	e, err := cat.Enum(name)
	if err != nil {
		return err
	}
	if e.Len() == 0 {
		se, err := cat.StringEnum(name)
		if err != nil {
			return err
		}
		for _, n := range se.Names() {
			v, _ := se.Value(n)
			fmt.Fprintf(w, "%-40s %q\n", n, v)
		}
		return nil
	}
	if value == "" {
		for _, n := range e.Names() {
			v, _ := e.Value(n)
			fmt.Fprintf(w, "%-40s %d\n", n, v)
		}
		return nil
	}
	if v, err := strconv.ParseInt(value, 0, 64); err == nil {
		fmt.Fprintln(w, e.Format(v))
		return nil
	}
	v, err := e.Parse(value)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, v)
	return nil
}
