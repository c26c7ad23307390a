package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const defaultWaitSeconds = 10

type NavigateInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		URL string `json:"url" minLength:"1" maxLength:"2048" doc:"Absolute http(s) URL"`
	}
}

type ClickInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Selector string `json:"selector" minLength:"1" maxLength:"512" doc:"CSS selector"`
	}
}

type TypeInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Selector string `json:"selector" minLength:"1" maxLength:"512" doc:"CSS selector"`
		Text     string `json:"text" maxLength:"4096"`
	}
}

type SelectorQueryInput struct {
	ID       string `path:"id" doc:"Session ID"`
	Selector string `query:"selector" required:"true" minLength:"1" maxLength:"512" doc:"CSS selector"`
}

type WaitInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Selector       string `json:"selector" minLength:"1" maxLength:"512" doc:"CSS selector"`
		TimeoutSeconds int    `json:"timeout_seconds,omitempty" minimum:"1" maximum:"120" doc:"Defaults to 10"`
	}
}

type ExtractTextOutput struct {
	Body struct {
		Text string `json:"text"`
	}
}

type ExtractAllOutput struct {
	Body struct {
		Texts []string `json:"texts"`
		Count int      `json:"count"`
	}
}

type WaitOutput struct {
	Body struct {
		Found bool `json:"found"`
	}
}

// RegisterBrowserRoutes exposes manual browser actions. They share the
// session's driver with its agents and run one at a time.
func RegisterBrowserRoutes(api huma.API, sessions SessionService) {
	huma.Register(api, huma.Operation{
		OperationID: "open-whatsapp",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/whatsapp/init",
		Summary:     "Navigate the browser back to WhatsApp Web",
		Tags:        []string{"Browser"},
	}, func(ctx context.Context, input *SessionPathInput) (*StatusOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		if err := sess.OpenWhatsApp(ctx); err != nil {
			return nil, toHTTPError(err, "failed to open WhatsApp Web")
		}
		return statusOK("ok"), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "navigate",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/actions/navigate",
		Summary:     "Load a URL in the session browser",
		Tags:        []string{"Browser"},
	}, func(ctx context.Context, input *NavigateInput) (*StatusOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		if err := sess.Navigate(ctx, input.Body.URL); err != nil {
			return nil, toHTTPError(err, "failed to navigate")
		}
		return statusOK("ok"), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "click",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/actions/click",
		Summary:     "Click the first element matching a selector",
		Tags:        []string{"Browser"},
	}, func(ctx context.Context, input *ClickInput) (*StatusOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		if err := sess.Click(ctx, input.Body.Selector); err != nil {
			return nil, toHTTPError(err, "failed to click")
		}
		return statusOK("ok"), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "type-text",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/actions/type",
		Summary:     "Type text into the first element matching a selector",
		Tags:        []string{"Browser"},
	}, func(ctx context.Context, input *TypeInput) (*StatusOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		if err := sess.TypeText(ctx, input.Body.Selector, input.Body.Text); err != nil {
			return nil, toHTTPError(err, "failed to type")
		}
		return statusOK("ok"), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "extract-text",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/actions/extract-text",
		Summary:     "Read the text of the first element matching a selector",
		Tags:        []string{"Browser"},
	}, func(ctx context.Context, input *SelectorQueryInput) (*ExtractTextOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		text, err := sess.ExtractText(ctx, input.Selector)
		if err != nil {
			return nil, toHTTPError(err, "failed to extract text")
		}
		out := &ExtractTextOutput{}
		out.Body.Text = text
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "extract-multiple",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/actions/extract-multiple",
		Summary:     "Read the text of every element matching a selector",
		Tags:        []string{"Browser"},
	}, func(ctx context.Context, input *SelectorQueryInput) (*ExtractAllOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		texts, err := sess.ExtractAll(ctx, input.Selector)
		if err != nil {
			return nil, toHTTPError(err, "failed to extract text")
		}
		if texts == nil {
			texts = []string{}
		}
		out := &ExtractAllOutput{}
		out.Body.Texts = texts
		out.Body.Count = len(texts)
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "wait-for-element",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/actions/wait",
		Summary:     "Wait for an element to appear",
		Description: "Returns found=false when the timeout elapses. The browser is held for the whole wait.",
		Tags:        []string{"Browser"},
	}, func(ctx context.Context, input *WaitInput) (*WaitOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		secs := input.Body.TimeoutSeconds
		if secs == 0 {
			secs = defaultWaitSeconds
		}
		found, err := sess.WaitForElement(ctx, input.Body.Selector, time.Duration(secs)*time.Second)
		if err != nil {
			return nil, toHTTPError(err, "failed to wait for element")
		}
		out := &WaitOutput{}
		out.Body.Found = found
		return out, nil
	})
}
