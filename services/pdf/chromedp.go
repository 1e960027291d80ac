package pdfsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	"github.com/trezcool/ada/core"
	"github.com/trezcool/ada/core/receipt"
)

const renderTimeout = 30 * time.Second

// ChromedpRenderer prints receipts to PDF with a headless Chrome.
type ChromedpRenderer struct {
	logger      core.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

var _ receipt.Renderer = (*ChromedpRenderer)(nil)

func NewChromedpRenderer(logger core.Logger) *ChromedpRenderer {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromedpRenderer{
		logger:      logger,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
}

func (r *ChromedpRenderer) Render(ctx context.Context, html []byte) (receipt.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// stop the browser tab when the caller gives up
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		return receipt.Document{}, errors.Wrap(err, "printing receipt to PDF")
	}
	return receipt.Document{Content: pdf, ContentType: "application/pdf", Ext: ".pdf"}, nil
}

// Close stops the browser.
func (r *ChromedpRenderer) Close() error {
	r.allocCancel()
	return nil
}
