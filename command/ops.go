package command

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/export"
	"github.com/goliatone/go-workflow-export/locale"
	"github.com/goliatone/go-workflow-export/strategy"
)

// BatchItem is one strategy response to export.
type BatchItem struct {
	Response    strategy.Response `json:"response"`
	Industry    string            `json:"industry"`
	Language    string            `json:"language,omitempty"`
	Theme       string            `json:"theme,omitempty"`
	Orientation string            `json:"orientation,omitempty"`
}

// BatchLoader loads batch items from a source.
type BatchLoader func(ctx context.Context) ([]BatchItem, error)

// BatchLimits bounds batch execution throughput.
type BatchLimits struct {
	MaxItems    int
	MinInterval time.Duration
}

// BatchResult reports one exported item.
type BatchResult struct {
	Index  int
	Record export.ExportRecord
	Err    error
}

// BatchCommand opens, exports and closes a list of strategy documents.
type BatchCommand struct {
	service   DocumentService
	loader    BatchLoader
	cliConfig gcmd.CLIConfig
	limits    BatchLimits
	options   document.ExportOptions
	sleep     func(time.Duration)
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithBatchExportOptions sets the geometry and filename template of every export.
func WithBatchExportOptions(opts document.ExportOptions) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.options = opts
	}
}

// NewBatchExportCommand creates the batch export command.
func NewBatchExportCommand(svc DocumentService, loader BatchLoader, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		service: svc,
		loader:  loader,
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"batch"},
			Description: "Export a list of strategy responses to PDF",
			Group:       "exports",
		},
		sleep: time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

// Run exports every item loaded from path, or from the configured loader
// when path is empty. A failing item is reported in its result and does not
// stop the batch; the returned error covers loading and cancellation.
func (c *BatchCommand) Run(ctx context.Context, from string) ([]BatchResult, error) {
	if c == nil {
		return nil, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.service == nil {
		return nil, serviceRequired()
	}

	items, err := c.loadItems(ctx, from)
	if err != nil {
		return nil, err
	}

	results := make([]BatchResult, 0, len(items))
	for i, item := range items {
		if c.limits.MaxItems > 0 && i >= c.limits.MaxItems {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		record, err := c.exportOne(ctx, item)
		results = append(results, BatchResult{Index: i, Record: record, Err: err})
		if c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}
	}
	return results, nil
}

func (c *BatchCommand) exportOne(ctx context.Context, item BatchItem) (export.ExportRecord, error) {
	theme, err := diagram.ParseTheme(item.Theme)
	if err != nil {
		return export.ExportRecord{}, errors.Wrap(err, errors.CategoryValidation, "invalid theme").
			WithTextCode("THEME_INVALID")
	}
	var orientation diagram.Orientation
	if item.Orientation != "" {
		if orientation, err = diagram.ParseOrientation(item.Orientation); err != nil {
			return export.ExportRecord{}, errors.Wrap(err, errors.CategoryValidation, "invalid orientation").
				WithTextCode("ORIENTATION_INVALID")
		}
	}
	opts := document.OpenOptions{Theme: theme, Orientation: orientation, Industry: item.Industry}
	if item.Language != "" {
		opts.Language = locale.Parse(item.Language)
	}

	ws, err := c.service.Open(ctx, item.Response, opts)
	if err != nil {
		return export.ExportRecord{}, err
	}
	defer func() {
		_ = c.service.Close(ws.ID)
	}()
	return c.service.Export(ctx, ws.ID, c.options)
}

func (c *BatchCommand) loadItems(ctx context.Context, from string) ([]BatchItem, error) {
	if strings.TrimSpace(from) != "" {
		return LoadBatchFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

// LoadBatchFile reads a JSON array of batch items.
func LoadBatchFile(path string) ([]BatchItem, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read batch file failed").
			WithTextCode("BATCH_FILE_READ")
	}

	var items []BatchItem
	if err := json.Unmarshal(content, &items); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "batch file invalid JSON").
			WithTextCode("BATCH_FILE_INVALID")
	}
	return items, nil
}
