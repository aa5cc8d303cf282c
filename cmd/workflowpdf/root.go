package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-workflow-export/config"
	"github.com/goliatone/go-workflow-export/strategy"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "workflowpdf",
	Short: "Render strategy workflow diagrams and export strategy documents to PDF",
	Long: `workflowpdf turns the workflow diagram of a strategy response into a
theme consistent vector graphic and prints the strategy document, with
its KPIs and diagram, to a single PDF. Run "serve" for the HTTP API.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "workflowpdf.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads the configuration and wires the application.
func setup(ctx context.Context) (*App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(os.Stderr, level, cfg.Log.Format)
	return NewApp(ctx, cfg, logger)
}

// readResponse decodes a strategy response from path, or stdin for "-".
func readResponse(path string) (strategy.Response, error) {
	var resp strategy.Response
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return resp, fmt.Errorf("reading strategy response: %w", err)
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return resp, fmt.Errorf("decoding strategy response: %w", err)
	}
	return resp, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
