package chromium

import (
	"context"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/engine"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/shared/errs"
)

// Launch switches required for containerized headless operation.
var baseArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	"--disable-web-security",
	"--disable-features=IsolateOrigins,site-per-process",
}

// Engine drives Chromium through the Playwright protocol. One Engine owns
// the driver process; each Instance launches its own browser so a crash
// never takes sibling sessions down with it.
type Engine struct {
	pw  *playwright.Playwright
	log *logging.Logger

	mu     sync.Mutex
	closed bool
}

// New starts the Playwright driver. When installDriver is set the driver and
// browser bundles are downloaded first, which can take minutes on a cold
// host; deployments that bake browsers into the image leave it off.
func New(log *logging.Logger, installDriver bool) (*Engine, error) {
	// Discard driver output so it cannot interleave with structured logs
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if installDriver {
		if err := playwright.Install(opts); err != nil {
			return nil, errs.Wrap(errs.Unavailable, "install browser driver", err)
		}
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "start browser driver", err)
	}

	log.Info("browser engine ready")
	return &Engine{pw: pw, log: log}, nil
}

// NewInstance launches an isolated browser for one session.
func (e *Engine) NewInstance(ctx context.Context, opts engine.Options) (engine.Instance, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errs.New(errs.Unavailable, "engine is shut down")
	}
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "instance launch aborted", err)
	}

	args := make([]string, 0, len(baseArgs)+len(opts.ExtraArgs))
	args = append(args, baseArgs...)
	args = append(args, opts.ExtraArgs...)

	browser, err := e.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     args,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "launch browser", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		UserAgent: playwright.String(opts.UserAgent),
	})
	if err != nil {
		browser.Close()
		return nil, errs.Wrap(errs.Unavailable, "create browser context", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		browser.Close()
		return nil, errs.Wrap(errs.Unavailable, "create page", err)
	}

	page.SetDefaultTimeout(float64(opts.ActionTimeout.Milliseconds()))

	inst := &Instance{
		log:     e.log,
		opts:    opts,
		browser: browser,
		bctx:    bctx,
		page:    page,
		cursor:  -1,
	}

	// Crash and disconnect both surface as termination; normal Close is
	// filtered inside terminate via the closed flag.
	page.OnCrash(func(playwright.Page) {
		inst.terminate(errs.New(errs.Unavailable, "page crashed"))
	})
	browser.OnDisconnected(func(playwright.Browser) {
		inst.terminate(errs.New(errs.Unavailable, "browser disconnected"))
	})

	e.log.Debug("browser instance launched",
		zap.Int("viewport_width", opts.ViewportWidth),
		zap.Int("viewport_height", opts.ViewportHeight),
		zap.Bool("headless", opts.Headless),
		zap.Int("extra_args", len(opts.ExtraArgs)),
	)

	return inst, nil
}

// Close stops the driver and every remaining browser.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	return e.pw.Stop()
}
