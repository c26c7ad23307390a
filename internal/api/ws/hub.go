package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/gosuda/wabot/internal/events"
)

const writeTimeout = 10 * time.Second

// Backlog returns the recorded events of a session newer than since. The
// bool is false when the session is unknown.
type Backlog func(ctx context.Context, sessionID string, since time.Time) ([]events.Event, bool)

// Hub serves per-session event streams over WebSocket.
type Hub struct {
	backlog Backlog
	source  Source
}

// NewHub creates a new WebSocket hub.
func NewHub(backlog Backlog, source Source) *Hub {
	return &Hub{backlog: backlog, source: source}
}

// ServeSessionEvents handles GET /ws/sessions/{sessionID}/events. It replays
// the session's log newer than the optional "since" cursor (RFC3339Nano),
// then streams new events as JSON text frames. Events already replayed are
// not sent twice.
func (h *Hub) ServeSessionEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			http.Error(w, "invalid since cursor", http.StatusBadRequest)
			return
		}
		since = t
	}

	if _, ok := h.backlog(r.Context(), sessionID, time.Now()); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Reads are only used to notice the client closing.
	ctx := conn.CloseRead(r.Context())

	// Subscribe before reading the backlog so nothing falls between them.
	live, cancel, err := h.source.Subscribe(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cancel()

	past, _ := h.backlog(ctx, sessionID, since)
	var lastSeq uint64
	for _, e := range past {
		if err := write(ctx, conn, e); err != nil {
			log.Debug().Err(err).Msg("websocket write")
			return
		}
		lastSeq = e.Seq
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case e, ok := <-live:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if e.Seq != 0 && e.Seq <= lastSeq {
				continue
			}
			if err := write(ctx, conn, e); err != nil {
				log.Debug().Err(err).Msg("websocket write")
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, e events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, e)
}
