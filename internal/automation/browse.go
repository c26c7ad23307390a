package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Navigate loads url in the session tab.
func (a *Actions) Navigate(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.NavigateTimeout)
	defer cancel()

	if err := a.surface.Navigate(ctx, url); err != nil {
		return fmt.Errorf("automation.Actions.Navigate: %w", err)
	}
	return nil
}

// Click waits for selector and clicks the first match.
func (a *Actions) Click(ctx context.Context, selector string) error {
	if err := a.require(ctx, selector); err != nil {
		return fmt.Errorf("automation.Actions.Click: %w", err)
	}
	if err := a.withTimeout(ctx, func(ctx context.Context) error {
		return a.surface.Click(ctx, selector)
	}); err != nil {
		return fmt.Errorf("automation.Actions.Click: %w", err)
	}
	return nil
}

// TypeText waits for selector, focuses it and inserts text.
func (a *Actions) TypeText(ctx context.Context, selector, text string) error {
	if err := a.require(ctx, selector); err != nil {
		return fmt.Errorf("automation.Actions.TypeText: %w", err)
	}
	if err := a.withTimeout(ctx, func(ctx context.Context) error {
		return a.surface.Type(ctx, selector, text)
	}); err != nil {
		return fmt.Errorf("automation.Actions.TypeText: %w", err)
	}
	return nil
}

// ExtractText returns the trimmed text of the first element matching selector.
func (a *Actions) ExtractText(ctx context.Context, selector string) (string, error) {
	if err := a.require(ctx, selector); err != nil {
		return "", fmt.Errorf("automation.Actions.ExtractText: %w", err)
	}
	var text string
	err := a.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		text, err = a.surface.Text(ctx, selector)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("automation.Actions.ExtractText: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// ExtractAll returns the text of every element matching selector, in
// document order. No match is an empty result, not an error.
func (a *Actions) ExtractAll(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	if err := a.eval(ctx, &texts, scriptTextAll, selector); err != nil {
		return nil, fmt.Errorf("automation.Actions.ExtractAll: %w", err)
	}
	if texts == nil {
		texts = []string{}
	}
	return texts, nil
}

// WaitForElement polls until selector matches or timeout elapses. A timeout
// is reported as found=false, not as an error.
func (a *Actions) WaitForElement(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	_, err := a.waitFor(ctx, timeout, selector)
	switch {
	case errors.Is(err, ErrTimeout):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("automation.Actions.WaitForElement: %w", err)
	}
	return true, nil
}

// require waits up to ActionTimeout for selector and maps a timeout to
// ErrElementNotFound.
func (a *Actions) require(ctx context.Context, selector string) error {
	_, err := a.waitFor(ctx, a.cfg.ActionTimeout, selector)
	if errors.Is(err, ErrTimeout) {
		return fmt.Errorf("%q: %w", selector, ErrElementNotFound)
	}
	return err
}
