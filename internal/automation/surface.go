// Package automation sequences primitive browser operations into WhatsApp Web
// actions. The primitives are behind Surface so the sequencing can run
// against any driver, including test fakes.
package automation

import (
	"context"
	"errors"
)

var (
	// ErrElementNotFound is returned by a Surface when a selector matches nothing.
	ErrElementNotFound = errors.New("automation: element not found")
	// ErrSurfaceClosed is returned once the underlying browser is gone.
	ErrSurfaceClosed = errors.New("automation: surface closed")
	// ErrTimeout is returned when a wait exhausts its budget.
	ErrTimeout = errors.New("automation: timeout")
	// ErrSendFailed is returned when every send strategy failed.
	ErrSendFailed = errors.New("automation: send failed")
	// ErrCloseFailed is returned when every close-chat strategy failed.
	ErrCloseFailed = errors.New("automation: close chat failed")
	// ErrChatNotFound is returned when a chat reference no longer resolves.
	ErrChatNotFound = errors.New("automation: chat not found")
)

// Key is a keyboard key understood by Surface.Press.
type Key string

const (
	KeyEnter     Key = "Enter"
	KeyEscape    Key = "Escape"
	KeyArrowDown Key = "ArrowDown"
)

// Script is a named JavaScript function expression evaluated in the page.
// Source must be a function, e.g. `(sel) => document.querySelector(sel) !== null`.
type Script struct {
	Name   string
	Source string
}

// Surface is the primitive browser interaction contract. Every call honours
// ctx cancellation and deadlines and returns ErrSurfaceClosed once the browser
// has gone away.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	// Exists checks for a selector match without waiting.
	Exists(ctx context.Context, selector string) (bool, error)
	Click(ctx context.Context, selector string) error
	// ContextClick right-clicks at an offset from the element's centre.
	ContextClick(ctx context.Context, selector string, dx, dy float64) error
	// Type focuses the element and inserts text.
	Type(ctx context.Context, selector, text string) error
	Press(ctx context.Context, keys ...Key) error
	Text(ctx context.Context, selector string) (string, error)
	// Eval runs script with args and decodes its JSON result into out when out is non-nil.
	Eval(ctx context.Context, out any, script Script, args ...any) error
	Close() error
}

// IsInfrastructure reports whether err means the browser itself is unusable,
// as opposed to one action failing.
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrSurfaceClosed)
}
