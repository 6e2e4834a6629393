package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/certgen/internal/certificate"
	"github.com/JonMunkholm/certgen/internal/config"
	"github.com/JonMunkholm/certgen/internal/export"
	"github.com/JonMunkholm/certgen/internal/logging"
	"github.com/JonMunkholm/certgen/internal/render"
	"github.com/JonMunkholm/certgen/internal/sheet"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	theme  render.Theme
	lookup *certificate.Service
}

func newRootCmd() *cobra.Command {
	var (
		sheetURL string
		a        app
	)

	root := &cobra.Command{
		Use:           "certgen",
		Short:         "Look up and export completion certificates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lookup := config.Overlay(map[string]string{"SHEET_URL": sheetURL}, os.LookupEnv)
			return a.init(lookup, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&sheetURL, "sheet-url", "", "sheet export URL (overrides SHEET_URL)")

	root.AddCommand(newLookupCmd(&a), newExportCmd(&a))
	return root
}

func (a *app) init(lookup config.LookupFunc, logOut io.Writer) error {
	cfg, err := config.LoadWith(lookup)
	if err != nil {
		return err
	}
	logging.SetupWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)

	theme, err := render.LoadTheme(cfg.Theme.File)
	if err != nil {
		return err
	}
	parser, err := sheet.ParserFor(cfg.Sheet.Format)
	if err != nil {
		return err
	}
	fetcher := sheet.NewFetcher(cfg.Sheet.URL,
		sheet.WithTimeout(cfg.Sheet.Timeout),
		sheet.WithMaxBytes(cfg.Sheet.MaxBytes),
	)

	a.cfg = cfg
	a.theme = theme
	a.lookup = certificate.NewService(fetcher, parser)
	return nil
}

func newLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <certificate-id>",
		Short: "Print the bound certificate as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := a.lookup.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cert)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export <certificate-id>",
		Short: "Write the certificate as png, pdf, or html",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			exporter, closeFn, err := a.exporter(format)
			if err != nil {
				return err
			}
			defer closeFn()

			cert, err := a.lookup.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			file, err := exporter.Export(ctx, cert)
			if err != nil {
				return err
			}

			if out == "-" {
				_, err := cmd.OutOrStdout().Write(file.Data)
				return err
			}
			if out == "" {
				out = file.Name
			}
			if err := os.WriteFile(out, file.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "png", "output format: png, pdf, or html")
	cmd.Flags().StringVarP(&out, "out", "o", "", `output path ("-" for stdout, default Certificate_<Name>.<ext>)`)
	return cmd
}

// exporter builds the exporter for format. Browser-backed formats return a
// close function that shuts the browser down.
func (a *app) exporter(format string) (export.Exporter, func(), error) {
	noop := func() {}

	switch strings.ToLower(format) {
	case "html":
		return export.HTMLExporter{Theme: a.theme}, noop, nil
	case "png", "pdf":
	default:
		return nil, noop, fmt.Errorf("unsupported export format %q (want png, pdf, or html)", format)
	}

	browser := export.NewRodBrowser(
		export.WithBrowserBin(a.cfg.Export.BrowserBin),
		export.WithHeadless(a.cfg.Export.Headless),
	)
	closeFn := func() { _ = browser.Close() }
	limiter := export.NewLimiter(1, a.cfg.Export.MaxWaitTime)

	if strings.EqualFold(format, "pdf") {
		return export.NewPDFExporter(browser, limiter, a.theme, a.cfg.Export.Timeout), closeFn, nil
	}
	return export.NewImageExporter(browser, limiter, a.theme,
		export.WithScale(a.cfg.Export.Scale),
		export.WithRenderTimeout(a.cfg.Export.Timeout),
	), closeFn, nil
}
