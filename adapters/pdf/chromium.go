package exportpdf

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/goliatone/go-workflow-export/adapters/chromium"
	"github.com/goliatone/go-workflow-export/export"
)

const cssPixelsPerInch = 96.0

var pdfLengthPattern = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)\s*$`)

var pdfPageSizesInches = map[string]struct {
	width  float64
	height float64
}{
	"A3":     {width: 11.69, height: 16.54},
	"A4":     {width: 8.27, height: 11.69},
	"A5":     {width: 5.83, height: 8.27},
	"LETTER": {width: 8.5, height: 11},
	"LEGAL":  {width: 8.5, height: 14},
}

// KnownPageSize reports whether name is a supported paper size.
func KnownPageSize(name string) bool {
	_, ok := pdfPageSizesInches[strings.ToUpper(strings.TrimSpace(name))]
	return ok
}

// ChromiumEngine prints pages through a shared headless Chromium.
type ChromiumEngine struct {
	Browser *chromium.Browser
}

// Render loads req.HTML into a blank tab and prints it. The viewport is
// emulated at the page width with the geometry scale as device pixel
// ratio so raster content inside the page renders at print density.
func (e *ChromiumEngine) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	if e == nil || e.Browser == nil {
		return nil, export.NewError(export.KindInternal, "chromium engine is nil", nil)
	}

	geometry := req.Geometry.Merge(export.DefaultGeometry())
	params, err := buildPrintToPDFParams(geometry)
	if err != nil {
		return nil, err
	}
	width, height, err := viewportSize(geometry)
	if err != nil {
		return nil, err
	}

	tabCtx, cancel, err := e.Browser.Tab(ctx)
	if err != nil {
		return nil, export.NewError(export.KindInternal, "chromium engine init failed", err)
	}
	defer cancel()

	var pdf []byte
	var fontsReady bool
	actions := []chromedp.Action{}
	if geometry.ExternalAssets == export.ExternalAssetsBlock {
		actions = append(actions,
			network.Enable(),
			network.SetBlockedURLs([]string{"http://*", "https://*"}),
		)
	}
	if strings.EqualFold(geometry.Background, "transparent") {
		actions = append(actions,
			emulation.SetDefaultBackgroundColorOverride().WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}),
		)
	}

	actions = append(actions,
		chromedp.EmulateViewport(width, height, chromedp.EmulateScale(deviceScale(geometry))),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(req.HTML)).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`document.fonts.ready.then(() => true)`, &fontsReady, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err = params.Do(ctx)
			return err
		}),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, export.NewError(export.KindExport, "chromium pdf render failed", err)
	}
	return pdf, nil
}

// Close releases the browser.
func (e *ChromiumEngine) Close() error {
	if e == nil {
		return nil
	}
	return e.Browser.Close()
}

// deviceScale is the geometry scale, or the DPI expressed against CSS pixels.
func deviceScale(g export.Geometry) float64 {
	if g.Scale > 0 {
		return g.Scale
	}
	if g.DPI > 0 {
		return float64(g.DPI) / cssPixelsPerInch
	}
	return 1
}

func viewportSize(g export.Geometry) (int64, int64, error) {
	size, ok := pdfPageSizesInches[strings.ToUpper(g.PageSize)]
	if !ok {
		return 0, 0, export.NewError(export.KindValidation, fmt.Sprintf("unsupported pdf page size: %s", g.PageSize), nil)
	}
	width, height := size.width, size.height
	if g.Landscape {
		width, height = height, width
	}
	return int64(width * cssPixelsPerInch), int64(height * cssPixelsPerInch), nil
}

func buildPrintToPDFParams(g export.Geometry) (*page.PrintToPDFParams, error) {
	params := page.PrintToPDF().
		WithPrintBackground(true).
		WithLandscape(g.Landscape).
		WithPreferCSSPageSize(false)

	size, ok := pdfPageSizesInches[strings.ToUpper(g.PageSize)]
	if !ok {
		return nil, export.NewError(export.KindValidation, fmt.Sprintf("unsupported pdf page size: %s", g.PageSize), nil)
	}
	params = params.WithPaperWidth(size.width).WithPaperHeight(size.height)

	top, err := marginInches(g.MarginTop)
	if err != nil {
		return nil, err
	}
	bottom, err := marginInches(g.MarginBottom)
	if err != nil {
		return nil, err
	}
	left, err := marginInches(g.MarginLeft)
	if err != nil {
		return nil, err
	}
	right, err := marginInches(g.MarginRight)
	if err != nil {
		return nil, err
	}
	params = params.WithMarginTop(top).WithMarginBottom(bottom).WithMarginLeft(left).WithMarginRight(right)
	return params, nil
}

func marginInches(value string) (float64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	return parseLengthInches(value)
}

func parseLengthInches(value string) (float64, error) {
	matches := pdfLengthPattern.FindStringSubmatch(value)
	if len(matches) != 3 {
		return 0, export.NewError(export.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), nil)
	}

	raw := matches[1]
	unit := strings.ToLower(matches[2])
	if unit == "" {
		unit = "in"
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, export.NewError(export.KindValidation, fmt.Sprintf("invalid pdf length: %s", value), err)
	}

	switch unit {
	case "in":
		return amount, nil
	case "cm":
		return amount / 2.54, nil
	case "mm":
		return amount / 25.4, nil
	case "pt":
		return amount / 72.0, nil
	case "px":
		return amount / cssPixelsPerInch, nil
	default:
		return 0, export.NewError(export.KindValidation, fmt.Sprintf("unsupported pdf length unit: %s", unit), nil)
	}
}
