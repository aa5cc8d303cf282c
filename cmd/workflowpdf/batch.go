package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-workflow-export/command"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
)

var batchCLI = command.NewBatchExportCommand(nil, nil).CLIOptions()

var batchCmd = &cobra.Command{
	Use:   batchCLI.Path[0] + " <items.json>",
	Short: batchCLI.Description,
	Long: `Batch reads a JSON array of {response, industry, language, theme,
orientation} items and exports each one. A failing item is reported
and the batch continues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		batch := command.NewBatchExportCommand(app.Service, nil,
			command.WithBatchLimits(command.BatchLimits{
				MaxItems:    app.Config.Batch.MaxItems,
				MinInterval: app.Config.Batch.MinInterval,
			}),
			command.WithBatchExportOptions(document.ExportOptions{
				FilenameTemplate: app.Config.Document.FilenameTemplate,
			}),
		)
		results, err := batch.Run(ctx, args[0])
		if err != nil {
			return err
		}

		failed := 0
		out := make([]batchLine, 0, len(results))
		for _, res := range results {
			line := batchLine{Index: res.Index, ExportID: res.Record.ID, Filename: res.Record.Filename, State: string(res.Record.State)}
			if res.Err != nil {
				failed++
				line.State = string(export.StateFailed)
				line.Error = res.Err.Error()
			}
			out = append(out, line)
		}
		if err := printJSON(out); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d exports failed", failed, len(results))
		}
		return nil
	},
}

type batchLine struct {
	Index    int    `json:"index"`
	ExportID string `json:"export_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	State    string `json:"state"`
	Error    string `json:"error,omitempty"`
}

func init() {
	cmdGroup := &cobra.Group{ID: batchCLI.Group, Title: "Export commands:"}
	rootCmd.AddGroup(cmdGroup)
	batchCmd.GroupID = cmdGroup.ID
	exportCmd.GroupID = cmdGroup.ID
	rootCmd.AddCommand(batchCmd)
}
