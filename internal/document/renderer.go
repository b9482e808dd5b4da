package document

import (
	"context"
	"net/url"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Renderer turns substituted markup into a paged PDF document.
type Renderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// A4 dimensions in inches and a 20mm top/bottom margin.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
	marginInches   = 0.79
)

// ChromeRenderer prints HTML to PDF through a headless Chrome instance.
// Each call launches its own browser context and releases it on every
// exit path; the caller bounds the call with a context timeout.
type ChromeRenderer struct{}

func (ChromeRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:], chromedp.NoSandbox)...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("data:text/html;charset=utf-8,"+url.PathEscape(html)),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				WithMarginTop(marginInches).
				WithMarginBottom(marginInches).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
