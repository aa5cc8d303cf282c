package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-workflow-export/command"
)

var cleanupCLI = command.NewCleanupExportsHandler(nil).CLIOptions()

var cleanupOlderThan time.Duration

var cleanupCmd = &cobra.Command{
	Use:   cleanupCLI.Path[0],
	Short: cleanupCLI.Description,
	Long: `Cleanup deletes the artifacts and history records of exports older
than storage.retention, or --older-than when given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if cleanupOlderThan > 0 {
			app.Service.Retention.TTL = cleanupOlderThan
		}
		var removed int
		handler := command.NewCleanupExportsHandler(app.Service)
		if err := handler.Execute(ctx, command.CleanupExports{Result: &removed}); err != nil {
			return err
		}
		return printJSON(map[string]int{"removed": removed})
	},
}

// runCleanup prunes expired exports every interval until ctx ends.
func runCleanup(ctx context.Context, app *App, interval time.Duration) error {
	if interval <= 0 || !app.Service.Retention.Enabled() {
		return nil
	}
	handler := command.NewCleanupExportsHandler(app.Service)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := handler.Execute(ctx, command.CleanupExports{}); err != nil {
				app.Logger.Errorf("cleanup: %v", err)
			}
		}
	}
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", 0, "expire exports older than this age")
	cleanupCmd.GroupID = cleanupCLI.Group
	rootCmd.AddCommand(cleanupCmd)
}
