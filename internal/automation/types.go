package automation

// LoginState is the WhatsApp Web authentication state.
type LoginState string

const (
	LoginLoggedOut LoginState = "logged_out"
	LoginLoggedIn  LoginState = "logged_in"
	LoginUnknown   LoginState = "unknown"
)

// OpenResult is the outcome of OpenChat.
type OpenResult string

const (
	OpenOpened        OpenResult = "opened"
	OpenInvalidTarget OpenResult = "invalid_target"
	OpenTimeout       OpenResult = "timeout"
)

// ChatRef identifies a chat in the chat list.
type ChatRef struct {
	Name   string `json:"name"`
	Unread int    `json:"unread"`
}

// ChatSummary is one row of the chat list.
type ChatSummary struct {
	Name        string `json:"name"`
	LastMessage string `json:"last_message"`
	Unread      int    `json:"unread"`
	Time        string `json:"time"`
}

// Ref returns the chat reference for this row.
func (c ChatSummary) Ref() ChatRef { return ChatRef{Name: c.Name, Unread: c.Unread} }

// Message is one transcript entry.
type Message struct {
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	Time    string `json:"time"`
	Inbound bool   `json:"inbound"`
}

// Transcript is the visible history of the open chat.
type Transcript struct {
	Chat     string    `json:"chat"`
	Messages []Message `json:"messages"`
	Inbound  int       `json:"inbound"`
	Outbound int       `json:"outbound"`
}

// LastInbound returns the newest inbound message, if any.
func (t Transcript) LastInbound() (Message, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].Inbound {
			return t.Messages[i], true
		}
	}
	return Message{}, false
}
