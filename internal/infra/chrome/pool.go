package chrome

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"compsbot/internal/config"
)

var (
	// ErrPoolDisabled is returned by NewPool when the configured pool size is
	// zero or negative.
	ErrPoolDisabled = errors.New("chrome pool disabled")
	// ErrPoolClosed is returned by Acquire and Restart after Close.
	ErrPoolClosed = errors.New("chrome pool closed")
)

// Tab is a leased browser tab. Ctx is valid until Release.
type Tab struct {
	Ctx    context.Context
	cancel context.CancelFunc
}

// Pool maintains a fixed number of tabs inside a single shared Chrome
// browser. Renders borrow a tab via Acquire, run with their own deadline and
// hand it back with Release.
type Pool struct {
	mu  sync.Mutex
	cfg config.Config
	sem chan struct{}

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	profileDir  string
	closed      bool
	restarts    int
	lastRestart time.Time
}

// Stats is a point-in-time snapshot of pool state.
type Stats struct {
	Enabled      bool
	Capacity     int
	Idle         int
	InUse        int
	PoolSizeConf int
	ProfileDir   string
	Restarts     int
	LastRestart  string
}

func createProfileDir(cfg config.Config) (string, error) {
	base := cfg.PDF.UserDataDir
	if base != "" {
		if err := os.MkdirAll(base, 0o755); err != nil {
			return "", err
		}
	}
	// MkdirTemp falls back to the system temp dir when base is empty.
	return os.MkdirTemp(base, "compsbot-chrome-*")
}

func allocatorOptions(cfg config.Config, profileDir string) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(profileDir),
		// Force software rendering and avoid Vulkan/ANGLE issues in minimal
		// container environments.
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-gpu-compositing", true),
		chromedp.Flag("disable-features", "Vulkan,UseSkiaRenderer"),
		chromedp.Flag("use-gl", "swiftshader"),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.PDF.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.PDF.ChromePath))
	}
	if cfg.PDF.ChromeNoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	return opts
}

// NewPool allocates the browser contexts for a pool of the configured size.
// Chrome itself is launched lazily on the first render.
func NewPool(cfg config.Config) (*Pool, error) {
	if cfg.PDF.ChromePoolSize <= 0 {
		return nil, ErrPoolDisabled
	}

	profileDir, err := createProfileDir(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:        cfg,
		sem:        make(chan struct{}, cfg.PDF.ChromePoolSize),
		profileDir: profileDir,
	}
	p.startLocked()
	for i := 0; i < cfg.PDF.ChromePoolSize; i++ {
		p.sem <- struct{}{}
	}
	return p, nil
}

// startLocked creates fresh allocator and browser contexts for the current
// profile dir. Caller must hold mu (or own the pool exclusively).
func (p *Pool) startLocked() {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(p.cfg, p.profileDir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	p.allocCancel = allocCancel
	p.browserCtx = browserCtx
	p.browserCancel = browserCancel
}

// Acquire leases a tab, blocking until one is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Tab, error) {
	p.mu.Lock()
	closed := p.closed
	browserCtx := p.browserCtx
	p.mu.Unlock()

	if closed {
		return nil, ErrPoolClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.sem:
	}

	if browserCtx == nil {
		browserCtx = context.Background()
	}
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	return &Tab{Ctx: tabCtx, cancel: tabCancel}, nil
}

// Release returns a tab to the pool. The tab context is always discarded; a
// fresh tab is cut from the shared browser on the next Acquire so render
// state never leaks between requests.
func (p *Pool) Release(tab *Tab, renderErr error) {
	if tab != nil && tab.cancel != nil {
		tab.cancel()
	}
	select {
	case p.sem <- struct{}{}:
	default:
	}
}

// Restart tears down the browser and starts over with a clean profile dir.
// Used after an interrupted Chrome session.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}

	oldDir := p.profileDir
	newDir, err := createProfileDir(p.cfg)
	if err != nil {
		return err
	}
	p.profileDir = newDir
	p.startLocked()

	if oldDir != "" {
		_ = os.RemoveAll(oldDir)
	}

	// Refill to capacity; tabs handed out before the restart return their
	// token through Release, which is a no-op on a full semaphore.
	if p.sem != nil {
	drain:
		for {
			select {
			case <-p.sem:
			default:
				break drain
			}
		}
		for i := 0; i < cap(p.sem); i++ {
			p.sem <- struct{}{}
		}
	}

	p.restarts++
	p.lastRestart = time.Now()
	return nil
}

// Close shuts the pool down. Idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	if p.profileDir != "" {
		_ = os.RemoveAll(p.profileDir)
	}
}

// Stats reports current pool occupancy.
func (p *Pool) Stats(timeoutSecs int) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Enabled:      !p.closed,
		PoolSizeConf: p.cfg.PDF.ChromePoolSize,
		ProfileDir:   p.profileDir,
		Restarts:     p.restarts,
	}
	if p.sem != nil {
		s.Capacity = cap(p.sem)
		s.Idle = len(p.sem)
		s.InUse = s.Capacity - s.Idle
	}
	if !p.lastRestart.IsZero() {
		s.LastRestart = p.lastRestart.Format(time.RFC3339)
	}
	return s
}

// IsSessionInterrupted reports whether err looks like a dead or torn-down
// Chrome session rather than a bad request.
func IsSessionInterrupted(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, probe := range []string{"target closed", "target crashed", "websocket: close", "connection reset"} {
		if strings.Contains(msg, probe) {
			return true
		}
	}
	return false
}
