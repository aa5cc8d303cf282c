package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-workflow-export/diagram"
	"github.com/goliatone/go-workflow-export/document"
	"github.com/goliatone/go-workflow-export/locale"
)

type documentFlags struct {
	input       string
	industry    string
	lang        string
	theme       string
	orientation string
}

func (f *documentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "-", "strategy response JSON file, - for stdin")
	cmd.Flags().StringVar(&f.industry, "industry", "", "industry shown in the header and filename")
	cmd.Flags().StringVar(&f.lang, "lang", "", "document language (en, ar); detected from the text when empty")
	cmd.Flags().StringVar(&f.theme, "theme", "", "diagram theme (light, dark)")
	cmd.Flags().StringVar(&f.orientation, "orientation", "", "diagram direction (TD, LR)")
}

func (f *documentFlags) options(app *App) (document.OpenOptions, error) {
	opts := document.OpenOptions{
		Theme:       app.Config.Theme(),
		Orientation: app.Config.Orientation(),
		Language:    app.Config.Language(),
		Industry:    f.industry,
	}
	if f.theme != "" {
		theme, err := diagram.ParseTheme(f.theme)
		if err != nil {
			return opts, err
		}
		opts.Theme = theme
	}
	if f.orientation != "" {
		o, err := diagram.ParseOrientation(f.orientation)
		if err != nil {
			return opts, err
		}
		opts.Orientation = o
	}
	if f.lang != "" {
		opts.Language = locale.Parse(f.lang)
	}
	return opts, nil
}

var (
	renderFlags documentFlags
	renderOut   string
	renderHTML  bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the workflow diagram of a strategy response",
	Long: `Render lays out the workflow diagram of a strategy response and writes
the themed SVG, or the whole strategy document as HTML with --html.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := setup(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		resp, err := readResponse(renderFlags.input)
		if err != nil {
			return err
		}
		opts, err := renderFlags.options(app)
		if err != nil {
			return err
		}
		ws, err := app.Service.Open(ctx, resp, opts)
		if err != nil {
			return err
		}
		defer func() {
			_ = app.Service.Close(ws.ID)
		}()

		d := ws.Diagram()
		if d.State == diagram.StateFailed {
			return fmt.Errorf("diagram render failed: %w", d.Failure)
		}

		output := d.Markup
		if renderHTML {
			output = ws.HTML()
		}
		if renderOut == "" || renderOut == "-" {
			_, err = fmt.Fprintln(os.Stdout, output)
			return err
		}
		if err := os.WriteFile(renderOut, []byte(output), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", renderOut, err)
		}
		app.Logger.Infof("wrote %s (%s, %s)", renderOut, d.State, d.Theme)
		return nil
	},
}

func init() {
	renderFlags.register(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "output file, stdout when empty")
	renderCmd.Flags().BoolVar(&renderHTML, "html", false, "write the whole document instead of the diagram")
	rootCmd.AddCommand(renderCmd)
}
