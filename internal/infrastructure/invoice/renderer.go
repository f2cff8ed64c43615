package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/marketplace/backend/internal/domain/order"
	"github.com/marketplace/backend/internal/domain/vendor"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second

	// A4 in inches
	a4Width  = 8.27
	a4Height = 11.69
	margin   = 0.4
)

// Error codes returned by the renderer
const (
	ErrCodeRenderFailed  = "INVOICE_RENDER_FAILED"
	ErrCodeRenderTimeout = "INVOICE_RENDER_TIMEOUT"
	ErrCodeInvalidOrder  = "INVOICE_INVALID_ORDER"
)

// RenderError describes a failed invoice render
type RenderError struct {
	Code    string
	Message string
	Err     error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

func newRenderError(code, message string, err error) *RenderError {
	return &RenderError{Code: code, Message: message, Err: err}
}

// Config contains renderer settings
type Config struct {
	// RemoteURL of a running Chrome DevTools endpoint. Empty launches a local browser.
	RemoteURL       string
	Timeout         time.Duration
	Locale          string
	MarketplaceName string
	NoSandbox       bool
	Logger          *zap.Logger
}

// ChromeRenderer prints invoices to PDF through the Chrome DevTools Protocol
type ChromeRenderer struct {
	config      Config
	builder     *Builder
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer creates a renderer and its browser allocator
func NewChromeRenderer(cfg Config) (*ChromeRenderer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	builder, err := NewBuilder(cfg.MarketplaceName, cfg.Locale)
	if err != nil {
		return nil, err
	}

	r := &ChromeRenderer{
		config:  cfg,
		builder: builder,
		logger:  logger,
	}
	r.initAllocator()
	return r, nil
}

func (r *ChromeRenderer) initAllocator() {
	if r.config.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), r.config.RemoteURL)
		return
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if r.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
}

// RenderInvoice renders the invoice of one vendor order
func (r *ChromeRenderer) RenderInvoice(ctx context.Context, o *order.Order, v *vendor.VendorProfile) ([]byte, error) {
	html, err := r.builder.Build(o, v)
	if err != nil {
		return nil, newRenderError(ErrCodeInvalidOrder, "build invoice document", err)
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// chromedp contexts are not derived from ctx, stop the browser tab when ctx ends
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, newRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("invoice rendering stopped after %v", time.Since(start).Round(time.Millisecond)), err)
		}
		return nil, newRenderError(ErrCodeRenderFailed, "print invoice", err)
	}

	r.logger.Debug("Invoice rendered",
		zap.String("order_number", o.OrderNumber),
		zap.Int("size", len(pdf)),
		zap.Duration("duration", time.Since(start)),
	)
	return pdf, nil
}

// Close shuts down the browser allocator
func (r *ChromeRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}
