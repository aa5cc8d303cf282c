package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-command/dispatcher"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-workflow-export/command"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
)

var (
	exportFlags     documentFlags
	exportOut       string
	exportPageSize  string
	exportLandscape bool
	exportFilename  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a strategy document to PDF",
	Long: `Export composes the strategy text, KPIs and workflow diagram of a
strategy response into one PDF, records the attempt in the export
history and optionally copies the artifact to --out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		subs, err := command.RegisterHandlers(nil, app.Service)
		if err != nil {
			return err
		}
		defer func() {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		}()

		resp, err := readResponse(exportFlags.input)
		if err != nil {
			return err
		}
		opts, err := exportFlags.options(app)
		if err != nil {
			return err
		}

		id, err := dispatcher.DispatchWithResult[command.OpenDocument, string](ctx, command.OpenDocument{
			Response: resp,
			Options:  opts,
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = dispatcher.Dispatch(ctx, command.CloseDocument{DocumentID: id})
		}()

		record, err := dispatcher.DispatchWithResult[command.ExportDocument, export.ExportRecord](ctx, command.ExportDocument{
			DocumentID: id,
			Options: document.ExportOptions{
				Geometry: export.Geometry{
					PageSize:  strings.ToUpper(exportPageSize),
					Landscape: exportLandscape,
				},
				FilenameTemplate: firstNonEmpty(exportFilename, app.Config.Document.FilenameTemplate),
			},
		})
		if err != nil {
			return err
		}

		if exportOut != "" {
			if err := copyArtifact(cmd, app, record.ID, exportOut); err != nil {
				return err
			}
		}
		return printJSON(record)
	},
}

func copyArtifact(cmd *cobra.Command, app *App, exportID, dest string) error {
	rc, _, err := app.Service.Download(cmd.Context(), exportID)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return f.Close()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func init() {
	exportFlags.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "copy the PDF to this path")
	exportCmd.Flags().StringVar(&exportPageSize, "page-size", "", "paper size (LETTER, A4, ...)")
	exportCmd.Flags().BoolVar(&exportLandscape, "landscape", false, "landscape pages")
	exportCmd.Flags().StringVar(&exportFilename, "filename", "", "filename template, e.g. {{.Prefix}}_{{.Industry}}_{{.Date}}")
	rootCmd.AddCommand(exportCmd)
}
