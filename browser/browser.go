// Package browser manages a rod-driven Chrome session and bridges live
// pages into the dom analyzer: snapshot capture in, highlight overlays
// out.
package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anxuanzi/domlens/dom"
)

// Config configures a browser session.
type Config struct {
	// Headless runs Chrome without a window.
	Headless bool

	// ViewportWidth and ViewportHeight size the emulated viewport.
	ViewportWidth  int
	ViewportHeight int

	// Stealth configures anti-detection measures.
	Stealth StealthConfig

	// Debug enables session logging through Logger.
	Debug bool

	// Logger receives session logs; defaults to a disabled logger.
	Logger zerolog.Logger
}

// DefaultConfig returns sensible session defaults.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 720,
		Stealth:        DefaultStealthConfig(),
		Logger:         zerolog.Nop(),
	}
}

// Session is one managed browser with one active page.
type Session struct {
	// ID uniquely names this session in logs and artifacts.
	ID string

	cfg      Config
	log      zerolog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// New creates a session; Start launches the browser.
func New(cfg Config) (*Session, error) {
	if cfg.ViewportWidth <= 0 || cfg.ViewportHeight <= 0 {
		return nil, fmt.Errorf("browser: viewport must be positive, got %dx%d", cfg.ViewportWidth, cfg.ViewportHeight)
	}
	id := uuid.NewString()
	log := zerolog.Nop()
	if cfg.Debug {
		log = cfg.Logger.With().Str("comp", "browser").Str("session", id).Logger()
	}
	return &Session{ID: id, cfg: cfg, log: log}, nil
}

// Start launches Chrome, connects, opens a blank page and applies the
// viewport and stealth configuration.
func (s *Session) Start(ctx context.Context) error {
	l := launcher.New().Headless(s.cfg.Headless)
	if s.cfg.Stealth.EnableStealth {
		for _, f := range stealthLaunchFlags {
			name, value, _ := strings.Cut(f, "=")
			l = l.Set(flags.Flag(name), value)
		}
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	s.launcher = l

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	s.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if err := applyStealthMode(page, s.cfg.Stealth); err != nil {
		return err
	}

	s.log.Info().Bool("headless", s.cfg.Headless).Msg("browser started")
	return nil
}

// Page exposes the active page for callers that need raw access.
func (s *Session) Page() *rod.Page { return s.page }

// Navigate loads a URL and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.page == nil {
		return fmt.Errorf("browser: session not started")
	}
	page := s.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	s.log.Info().Str("url", url).Msg("navigated")
	return nil
}

// AnalyzePage captures the current page and runs the analyzer over it.
// When the options request highlighting, the overlay is injected into the
// live page as well.
func (s *Session) AnalyzePage(ctx context.Context, opts dom.Options) (*dom.Result, error) {
	if s.page == nil {
		return nil, fmt.Errorf("browser: session not started")
	}
	doc, err := CaptureDocument(ctx, s.page)
	if err != nil {
		return nil, err
	}
	res := dom.Analyze(doc, opts)
	if opts.DoHighlightElements {
		if err := ApplyHighlights(s.page.Context(ctx), res); err != nil {
			s.log.Warn().Err(err).Msg("highlight injection failed")
		}
	}
	s.log.Info().
		Int("candidates", res.PerfMetrics.NodeMetrics.FilteredInteractiveNodes).
		Float64("ms", res.PerfMetrics.TotalTime).
		Msg("page analyzed")
	return res, nil
}

// Screenshot captures the viewport as JPEG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if s.page == nil {
		return nil, fmt.Errorf("browser: session not started")
	}
	quality := 85
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return data, nil
}

// Close tears the browser down.
func (s *Session) Close() error {
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			return fmt.Errorf("close browser: %w", err)
		}
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	s.log.Info().Msg("browser closed")
	return nil
}
