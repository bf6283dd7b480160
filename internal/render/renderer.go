// Package render converts composed HTML into PDF bytes using headless
// Chrome. It is the single external-engine boundary of the pipeline.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"compsbot/internal/config"
	"compsbot/internal/domain"
	"compsbot/internal/infra/chrome"
	"compsbot/internal/infra/logging"
)

var pdfHeader = []byte("%PDF-")

// Renderer prints HTML documents to PDF through a shared Chrome tab pool.
// With the pool disabled (size 0) every render launches its own Chrome.
type Renderer struct {
	cfg config.Config

	poolMu sync.Mutex
	pool   *chrome.Pool
}

// New creates a Renderer. The Chrome pool is initialized lazily on first use.
func New(cfg config.Config) *Renderer {
	return &Renderer{cfg: cfg}
}

func (r *Renderer) getPool() (*chrome.Pool, error) {
	r.poolMu.Lock()
	defer r.poolMu.Unlock()

	if r.cfg.PDF.ChromePoolSize <= 0 {
		return nil, nil
	}
	if r.pool != nil {
		return r.pool, nil
	}
	pool, err := chrome.NewPool(r.cfg)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r.pool, nil
}

// PoolStats exposes pool occupancy for the stats endpoint. Returns false when
// the pool is disabled.
func (r *Renderer) PoolStats() (chrome.Stats, bool, error) {
	pool, err := r.getPool()
	if err != nil {
		return chrome.Stats{}, false, err
	}
	if pool == nil {
		return chrome.Stats{}, false, nil
	}
	return pool.Stats(r.cfg.PDF.TimeoutSecs), true, nil
}

// Close shuts down the Chrome pool if one was started.
func (r *Renderer) Close() {
	r.poolMu.Lock()
	defer r.poolMu.Unlock()
	if r.pool != nil {
		r.pool.Close()
	}
}

// Render prints the document and verifies the result is a well-formed PDF.
// Timeouts surface as context.DeadlineExceeded; everything else from the
// engine is an environment failure, not a bad request.
func (r *Renderer) Render(html string) ([]byte, error) {
	pdfBuf, err := r.renderRaw(html)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrEnvironment, err)
	}
	if len(pdfBuf) == 0 || !bytes.HasPrefix(pdfBuf, pdfHeader) {
		return nil, fmt.Errorf("%w: engine returned a malformed PDF", domain.ErrEnvironment)
	}
	return pdfBuf, nil
}

func (r *Renderer) renderRaw(html string) ([]byte, error) {
	pool, err := r.getPool()
	if err != nil {
		return nil, err
	}
	if pool == nil {
		// Fallback: start a new Chrome instance per request.
		return r.renderWithOwnChrome(html)
	}

	timeout := time.Duration(r.cfg.PDF.TimeoutSecs) * time.Second

	runOnce := func() ([]byte, error) {
		acquireCtx, acquireCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer acquireCancel()

		tab, err := pool.Acquire(acquireCtx)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(tab.Ctx, timeout)
		pdfBuf, renderErr := printToPDF(ctx, html, r.paper(), r.cfg.PDF.MarginInches)
		cancel()

		pool.Release(tab, renderErr)
		return pdfBuf, renderErr
	}

	pdfBuf, renderErr := runOnce()
	if renderErr != nil && chrome.IsSessionInterrupted(renderErr) {
		logging.Warn("Chrome session interrupted; restarting pool and retrying once", "error", renderErr)
		_ = pool.Restart()
		return runOnce()
	}
	return pdfBuf, renderErr
}

func (r *Renderer) paper() config.PaperSize {
	paper, ok := r.cfg.PDF.PaperSizes[r.cfg.PDF.DefaultPaper]
	if !ok {
		paper = config.PaperSize{Width: 8.5, Height: 11}
	}
	return paper
}

// renderWithOwnChrome launches a throwaway Chrome for a single render.
func (r *Renderer) renderWithOwnChrome(html string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "chromedata-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create temp profile dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	allocatorOptions := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(tmpDir),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal
		// container environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.cfg.PDF.ChromePath != "" {
		allocatorOptions = append(allocatorOptions, chromedp.ExecPath(r.cfg.PDF.ChromePath))
	}
	if r.cfg.PDF.ChromeNoSandbox {
		allocatorOptions = append(allocatorOptions, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, _ := chromedp.NewExecAllocator(context.Background(), allocatorOptions...)
	chromeCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	timeout := time.Duration(r.cfg.PDF.TimeoutSecs) * time.Second
	chromeCtx, cancel = context.WithTimeout(chromeCtx, timeout)
	defer cancel()

	return printToPDF(chromeCtx, html, r.paper(), r.cfg.PDF.MarginInches)
}

// printToPDF loads the document into a tab and prints it.
func printToPDF(ctx context.Context, html string, paper config.PaperSize, margin float64) ([]byte, error) {
	var pdfBuf []byte

	actions := []chromedp.Action{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frame, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frame.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(200 * time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paper.Width).
				WithPaperHeight(paper.Height).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				Do(ctx)
			return err
		}),
	}

	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, err
	}
	return pdfBuf, nil
}
