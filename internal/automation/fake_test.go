package automation_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/events"
)

// fakeSurface is a function-field Surface. Exists consults the present set
// unless existsFunc is set; Eval dispatches on the script name.
type fakeSurface struct {
	mu      sync.Mutex
	present map[string]bool
	calls   []string

	existsFunc       func(selector string) (bool, error)
	clickFunc        func(selector string) error
	contextClickFunc func(selector string) error
	typeFunc         func(selector, text string) error
	pressFunc        func(keys []automation.Key) error
	textFunc         func(selector string) (string, error)
	evalFunc         func(name string, args []any) (any, error)
}

func newFakeSurface(present ...string) *fakeSurface {
	f := &fakeSurface{present: map[string]bool{}}
	for _, p := range present {
		f.present[p] = true
	}
	return f
}

func (f *fakeSurface) set(selector string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.present[selector] = on
}

func (f *fakeSurface) log(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSurface) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSurface) count(call string) int {
	n := 0
	for _, c := range f.callLog() {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeSurface) Navigate(_ context.Context, url string) error {
	f.log("navigate:" + url)
	return nil
}

func (f *fakeSurface) Exists(_ context.Context, selector string) (bool, error) {
	if f.existsFunc != nil {
		return f.existsFunc(selector)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.present[selector], nil
}

func (f *fakeSurface) Click(_ context.Context, selector string) error {
	f.log("click")
	if f.clickFunc != nil {
		return f.clickFunc(selector)
	}
	return nil
}

func (f *fakeSurface) ContextClick(_ context.Context, selector string, _, _ float64) error {
	f.log("context_click")
	if f.contextClickFunc != nil {
		return f.contextClickFunc(selector)
	}
	return nil
}

func (f *fakeSurface) Type(_ context.Context, selector, text string) error {
	f.log("type:" + text)
	if f.typeFunc != nil {
		return f.typeFunc(selector, text)
	}
	return nil
}

func (f *fakeSurface) Press(_ context.Context, keys ...automation.Key) error {
	for _, k := range keys {
		f.log("press:" + string(k))
	}
	if f.pressFunc != nil {
		return f.pressFunc(keys)
	}
	return nil
}

func (f *fakeSurface) Text(_ context.Context, selector string) (string, error) {
	if f.textFunc != nil {
		return f.textFunc(selector)
	}
	return "", automation.ErrElementNotFound
}

func (f *fakeSurface) Eval(_ context.Context, out any, script automation.Script, args ...any) error {
	f.log("eval:" + script.Name)
	if f.evalFunc == nil {
		return nil
	}
	v, err := f.evalFunc(script.Name, args)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeSurface) Close() error { return nil }

type recorded struct {
	kind    events.Kind
	message string
	payload map[string]any
}

type recorder struct {
	mu  sync.Mutex
	got []recorded
}

func (r *recorder) record(kind events.Kind, message string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, recorded{kind: kind, message: message, payload: payload})
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.got {
		if e.kind == events.KindAction {
			if at, ok := e.payload["action_type"].(string); ok {
				out = append(out, at)
			}
		}
	}
	return out
}

func fastConfig() automation.Config {
	return automation.Config{
		WhatsAppURL:         "https://web.whatsapp.test/",
		ActionTimeout:       time500ms,
		NavigateTimeout:     time500ms,
		PollInterval:        time5ms,
		CheckTimeout:        time50ms,
		OpenTimeout:         time50ms,
		InvalidCheckTimeout: time50ms,
		SettleDelay:         0,
		CloseAttempts:       2,
	}
}
