package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/automation"
)

const healthCheckTimeout = 2 * time.Second

// Surface implements automation.Surface over a single Chrome tab.
type Surface struct {
	launcher        *launcher.Launcher
	browser         *rod.Browser
	page            *rod.Page
	pageLoadTimeout time.Duration
	closed          atomic.Bool
}

var _ automation.Surface = (*Surface)(nil)

var keys = map[automation.Key]input.Key{
	automation.KeyEnter:     input.Enter,
	automation.KeyEscape:    input.Escape,
	automation.KeyArrowDown: input.ArrowDown,
}

// Navigate loads url and waits for the load event.
func (s *Surface) Navigate(ctx context.Context, url string) error {
	if s.closed.Load() {
		return automation.ErrSurfaceClosed
	}
	if s.pageLoadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pageLoadTimeout)
		defer cancel()
	}

	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return s.classify(fmt.Errorf("browser.Surface.Navigate: %w", err))
	}
	if err := p.WaitLoad(); err != nil {
		return s.classify(fmt.Errorf("browser.Surface.Navigate: wait load: %w", err))
	}
	return nil
}

// Exists implements automation.Surface.
func (s *Surface) Exists(ctx context.Context, selector string) (bool, error) {
	if s.closed.Load() {
		return false, automation.ErrSurfaceClosed
	}
	ok, _, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return false, s.classify(fmt.Errorf("browser.Surface.Exists: %w", err))
	}
	return ok, nil
}

// Click implements automation.Surface.
func (s *Surface) Click(ctx context.Context, selector string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return s.classify(fmt.Errorf("browser.Surface.Click: %w", err))
	}
	return nil
}

// ContextClick implements automation.Surface.
func (s *Surface) ContextClick(ctx context.Context, selector string, dx, dy float64) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	shape, err := el.Shape()
	if err != nil {
		return s.classify(fmt.Errorf("browser.Surface.ContextClick: shape: %w", err))
	}
	box := shape.Box()
	if box == nil {
		return fmt.Errorf("browser.Surface.ContextClick: %w", automation.ErrElementNotFound)
	}

	p := s.page.Context(ctx)
	pt := proto.Point{X: box.X + box.Width/2 + dx, Y: box.Y + box.Height/2 + dy}
	if err := p.Mouse.MoveTo(pt); err != nil {
		return s.classify(fmt.Errorf("browser.Surface.ContextClick: move: %w", err))
	}
	if err := p.Mouse.Click(proto.InputMouseButtonRight, 1); err != nil {
		return s.classify(fmt.Errorf("browser.Surface.ContextClick: %w", err))
	}
	return nil
}

// Type focuses the element and inserts text without key events, so embedded
// newlines do not submit the composer.
func (s *Surface) Type(ctx context.Context, selector, text string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return err
	}
	if err := el.Focus(); err != nil {
		return s.classify(fmt.Errorf("browser.Surface.Type: focus: %w", err))
	}
	if err := s.page.Context(ctx).InsertText(text); err != nil {
		return s.classify(fmt.Errorf("browser.Surface.Type: %w", err))
	}
	return nil
}

// Press implements automation.Surface.
func (s *Surface) Press(ctx context.Context, ks ...automation.Key) error {
	if s.closed.Load() {
		return automation.ErrSurfaceClosed
	}
	mapped := make([]input.Key, 0, len(ks))
	for _, k := range ks {
		ik, ok := keys[k]
		if !ok {
			return fmt.Errorf("browser.Surface.Press: unsupported key %q", k)
		}
		mapped = append(mapped, ik)
	}
	if err := s.page.Context(ctx).Keyboard.Type(mapped...); err != nil {
		return s.classify(fmt.Errorf("browser.Surface.Press: %w", err))
	}
	return nil
}

// Text implements automation.Surface.
func (s *Surface) Text(ctx context.Context, selector string) (string, error) {
	el, err := s.element(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", s.classify(fmt.Errorf("browser.Surface.Text: %w", err))
	}
	return text, nil
}

// Eval implements automation.Surface.
func (s *Surface) Eval(ctx context.Context, out any, script automation.Script, args ...any) error {
	if s.closed.Load() {
		return automation.ErrSurfaceClosed
	}
	res, err := s.page.Context(ctx).Eval(script.Source, args...)
	if err != nil {
		return s.classify(fmt.Errorf("browser.Surface.Eval: %s: %w", script.Name, err))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), out); err != nil {
		return fmt.Errorf("browser.Surface.Eval: %s: decode: %w", script.Name, err)
	}
	return nil
}

// Close shuts Chrome down. The profile directory is left in place.
func (s *Surface) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.browser.Close()
	s.launcher.Kill()
	if err != nil {
		log.Warn().Err(err).Msg("browser.Surface.Close: graceful close failed, process killed")
	}
	return nil
}

func (s *Surface) element(ctx context.Context, selector string) (*rod.Element, error) {
	if s.closed.Load() {
		return nil, automation.ErrSurfaceClosed
	}
	ok, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, s.classify(fmt.Errorf("browser.Surface: %q: %w", selector, err))
	}
	if !ok {
		return nil, fmt.Errorf("browser.Surface: %q: %w", selector, automation.ErrElementNotFound)
	}
	return el.Context(ctx), nil
}

// classify maps a CDP failure to ErrSurfaceClosed when Chrome no longer
// answers, so callers can tell a dead browser from a failed action.
func (s *Surface) classify(err error) error {
	if !s.alive() {
		return errors.Join(automation.ErrSurfaceClosed, err)
	}
	return err
}

func (s *Surface) alive() bool {
	if s.closed.Load() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	if _, err := s.browser.Context(ctx).Version(); err != nil {
		s.closed.Store(true)
		return false
	}
	return true
}
