// Package browser drives Chrome through the DevTools protocol with go-rod and
// exposes it as an automation.Surface.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/automation"
)

// ErrLaunch is returned when Chrome cannot be started or connected to.
var ErrLaunch = errors.New("browser: launch failed")

const defaultLaunchTimeout = 30 * time.Second

// Options configures one Chrome process.
type Options struct {
	// Bin is the Chrome binary. Empty means look it up on the system.
	Bin string
	// UserDataDir is the persistent profile directory.
	UserDataDir     string
	Headless        bool
	PageLoadTimeout time.Duration
}

// Launcher starts Chrome processes bound to persistent profiles.
type Launcher struct {
	bin             string
	pageLoadTimeout time.Duration
}

// NewLauncher returns a launcher. An empty bin is resolved with
// launcher.LookPath at launch time.
func NewLauncher(bin string, pageLoadTimeout time.Duration) *Launcher {
	return &Launcher{bin: bin, pageLoadTimeout: pageLoadTimeout}
}

// Launch starts Chrome on the profile at userDataDir and returns a Surface
// bound to its first tab.
func (l *Launcher) Launch(ctx context.Context, userDataDir string, headless bool) (automation.Surface, error) {
	return Launch(ctx, Options{
		Bin:             l.bin,
		UserDataDir:     userDataDir,
		Headless:        headless,
		PageLoadTimeout: l.pageLoadTimeout,
	})
}

func newLauncher(opts Options) *launcher.Launcher {
	bin := opts.Bin
	if bin == "" {
		if path, ok := launcher.LookPath(); ok {
			bin = path
		}
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-notifications").
		Set("disable-infobars").
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("profile-directory", "Default")
	if bin != "" {
		l = l.Bin(bin)
	}
	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}
	return l
}

// Launch starts Chrome and connects to it. The profile directory is never
// removed. Startup, including the DevTools handshake and the first tab, is
// bounded by ctx and by PageLoadTimeout.
func Launch(ctx context.Context, opts Options) (*Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("browser.Launch: %w", err)
	}

	timeout := opts.PageLoadTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	launchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l := newLauncher(opts).Context(launchCtx)

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("browser.Launch: %w: %v", ErrLaunch, err)
	}

	b := rod.New().Context(launchCtx).ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("browser.Launch: connect: %w: %v", ErrLaunch, err)
	}

	page, err := firstPage(b)
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("browser.Launch: open tab: %w: %v", ErrLaunch, err)
	}

	log.Info().Str("user_data_dir", opts.UserDataDir).Bool("headless", opts.Headless).
		Int("pid", l.PID()).Msg("browser.Launch: chrome started")

	// Detach from the launch deadline; every Surface call scopes its own ctx.
	return &Surface{
		launcher:        l,
		browser:         b.Context(context.Background()),
		page:            page.Context(context.Background()),
		pageLoadTimeout: opts.PageLoadTimeout,
	}, nil
}

func firstPage(b *rod.Browser) (*rod.Page, error) {
	pages, err := b.Pages()
	if err == nil && len(pages) > 0 {
		return pages.First(), nil
	}
	return b.Page(proto.TargetCreateTarget{URL: "about:blank"})
}
