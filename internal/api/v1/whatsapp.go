package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/wabot/internal/automation"
)

type LoginStateOutput struct {
	Body struct {
		State automation.LoginState `json:"state" enum:"logged_out,logged_in,unknown"`
	}
}

type QRCodeOutput struct {
	Body struct {
		QRCode string `json:"qr_code" doc:"PNG data URL of the login QR code"`
	}
}

type ListChatsOutput struct {
	Body []automation.ChatSummary
}

type SendMessageInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Contact string `json:"contact" minLength:"1" maxLength:"100" doc:"Phone number in international format"`
		Text    string `json:"text" minLength:"1" maxLength:"4096" doc:"Message text"`
	}
}

func RegisterWhatsAppRoutes(api huma.API, sessions SessionService) {
	huma.Register(api, huma.Operation{
		OperationID: "get-login-state",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/login-state",
		Summary:     "Detect whether the WhatsApp account is logged in",
		Tags:        []string{"WhatsApp"},
	}, func(ctx context.Context, input *SessionPathInput) (*LoginStateOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		state, err := sess.LoginState(ctx)
		if err != nil {
			return nil, toHTTPError(err, "failed to detect login state")
		}
		out := &LoginStateOutput{}
		out.Body.State = state
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-qr-code",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/qr",
		Summary:     "Get the login QR code",
		Description: "Fails with 409 unless the account is logged out. Serving the code starts watching for the login to complete.",
		Tags:        []string{"WhatsApp"},
	}, func(ctx context.Context, input *SessionPathInput) (*QRCodeOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		qr, err := sess.QRCode(ctx)
		if err != nil {
			return nil, toHTTPError(err, "failed to read QR code")
		}
		out := &QRCodeOutput{}
		out.Body.QRCode = qr
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-chats",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/chats",
		Summary:     "List the chats visible in the sidebar",
		Tags:        []string{"WhatsApp"},
	}, func(ctx context.Context, input *SessionPathInput) (*ListChatsOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		chats, err := sess.ListChats(ctx)
		if err != nil {
			return nil, toHTTPError(err, "failed to list chats")
		}
		if chats == nil {
			chats = []automation.ChatSummary{}
		}
		return &ListChatsOutput{Body: chats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "send-message",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/messages",
		Summary:     "Send a message to a contact",
		Tags:        []string{"WhatsApp"},
	}, func(ctx context.Context, input *SendMessageInput) (*StatusOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		if err := sess.SendMessage(ctx, input.Body.Contact, input.Body.Text); err != nil {
			return nil, toHTTPError(err, "failed to send message")
		}
		return statusOK("sent"), nil
	})
}
