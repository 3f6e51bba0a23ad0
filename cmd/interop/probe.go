package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/native"
	"github.com/wippyai/native-interop/native/dl"
	"github.com/wippyai/native-interop/native/wasm"
)

var probeCmd = &cobra.Command{
	Use:   "probe [library]",
	Short: "Bind the catalog against a real library and report missing symbols",
	Long: "Opens a shared library with dlopen, or instantiates a .wasm guest, and resolves every catalog " +
		"function in it. Without an argument the path comes from " + dl.EnvLibrary + ".",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		path := os.Getenv(dl.EnvLibrary)
		if len(args) == 1 {
			path = args[0]
		}
		lib, err := openLibrary(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer lib.Close()
		return probe(cmd.Context(), cmd.OutOrStdout(), lib, cat)
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func openLibrary(ctx context.Context, path string) (native.Library, error) {
	if filepath.Ext(path) == ".wasm" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Load("read "+path, err)
		}
		cfg := wasm.DefaultConfig()
		cfg.Name = filepath.Base(path)
		return wasm.Open(ctx, data, cfg)
	}
	cfg := dl.DefaultConfig()
	cfg.Path = path
	return dl.Open(cfg)
}

func probe(ctx context.Context, w io.Writer, lib native.Library, cat *catalog.Catalog) error {
	target := native.TargetOf(lib)
	fmt.Fprintf(w, "%s (%s)\n", lib.Name(), target)
	if g, ok := lib.(*wasm.Library); ok {
		fmt.Fprintf(w, "  %d exported functions\n", len(g.Exports()))
	}

	s, err := catalog.Bind(lib, cat)
	var missing *errors.MissingSymbolsError
	if stderrors.As(err, &missing) {
		fmt.Fprintln(w, errorStyle.Render(missing.Error()))
		return fmt.Errorf("%d required symbols missing", len(missing.Symbols))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "  %d catalog functions bound\n", len(cat.Functions))
	for _, name := range s.Unavailable() {
		fmt.Fprintf(w, "  %s %s\n", optionalStyle.Render("unavailable (optional):"), name)
	}

	if p, err := s.Proc("SDL_GetVersion"); err == nil && p.Available() {
		v, err := p.Call(ctx)
		if err != nil {
			return err
		}
		if n, ok := v.(int32); ok {
			fmt.Fprintf(w, "  version %d.%d.%d\n", n/1000000, n/1000%1000, n%1000)
		}
	}
	return nil
}
