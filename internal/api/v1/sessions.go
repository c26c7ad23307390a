package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/wabot/internal/domain"
	"github.com/gosuda/wabot/internal/events"
	"github.com/gosuda/wabot/internal/session"
)

type SessionPathInput struct {
	ID string `path:"id" doc:"Session ID"`
}

type StatusOutput struct {
	Body struct {
		Status string `json:"status" doc:"Operation result"`
	}
}

func statusOK(status string) *StatusOutput {
	out := &StatusOutput{}
	out.Body.Status = status
	return out
}

type CreateSessionInput struct {
	Body struct {
		ProfileName string `json:"profile_name,omitempty" maxLength:"100" doc:"Profile name; required unless session_id is given"`
		SessionID   string `json:"session_id,omitempty" maxLength:"200" doc:"Existing session ID to resume"`
		Headless    *bool  `json:"headless,omitempty" doc:"Run the browser without a window"`
	}
}

type CreateSessionOutput struct {
	Body struct {
		SessionID   string               `json:"session_id"`
		ProfileName string               `json:"profile_name"`
		Status      domain.SessionStatus `json:"status"`
		Created     bool                 `json:"created"`
	}
}

type ListSessionsOutput struct {
	Body []domain.SessionInfo
}

type ListProfilesOutput struct {
	Body []domain.ProfileInfo
}

type GetSessionOutput struct {
	Body domain.SessionInfo
}

type DeleteSessionInput struct {
	ID    string `path:"id" doc:"Session ID"`
	Purge bool   `query:"purge" doc:"Also remove the browser profile directory"`
}

type ListEventsInput struct {
	ID    string `path:"id" doc:"Session ID"`
	Since string `query:"since" doc:"Return events strictly after this RFC3339Nano timestamp"`
	Limit int    `query:"limit" minimum:"1" maximum:"1000" default:"50" doc:"Max results (most recent)"`
}

type ListEventsOutput struct {
	Body []events.Event
}

type UpdateMetadataInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Key  string `path:"key" doc:"Metadata key"`
	Body struct {
		Value any `json:"value" doc:"Metadata value"`
	}
}

func RegisterSessionRoutes(api huma.API, sessions SessionService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-session",
		Method:      http.MethodPost,
		Path:        "/sessions",
		Summary:     "Create a session or resume an existing one",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
		sess, created, err := sessions.CreateOrResume(session.CreateRequest{
			ProfileName: input.Body.ProfileName,
			SessionID:   input.Body.SessionID,
			Headless:    input.Body.Headless,
		})
		if err != nil {
			return nil, toHTTPError(err, "failed to create session")
		}

		out := &CreateSessionOutput{}
		out.Body.SessionID = sess.ID()
		out.Body.ProfileName = sess.ProfileName()
		out.Body.Status = sess.Status()
		out.Body.Created = created
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sessions",
		Method:      http.MethodGet,
		Path:        "/sessions",
		Summary:     "List registered sessions",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, _ *struct{}) (*ListSessionsOutput, error) {
		return &ListSessionsOutput{Body: sessions.ListActive()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-profiles",
		Method:      http.MethodGet,
		Path:        "/profiles",
		Summary:     "List browser profiles saved on disk",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, _ *struct{}) (*ListProfilesOutput, error) {
		profiles, err := sessions.ListSavedProfiles()
		if err != nil {
			return nil, toHTTPError(err, "failed to list profiles")
		}
		return &ListProfilesOutput{Body: profiles}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}",
		Summary:     "Get a session snapshot",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *SessionPathInput) (*GetSessionOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		return &GetSessionOutput{Body: sess.Snapshot()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "init-driver",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/driver",
		Summary:     "Launch the session's browser",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *SessionPathInput) (*StatusOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		res, err := sess.InitDriver(ctx)
		if err != nil {
			return nil, toHTTPError(err, "failed to start browser")
		}
		return statusOK(string(res)), nil
	})

	lifecycle := []struct {
		op, summary string
		fn          func(id string) bool
	}{
		{op: "pause", summary: "Pause a session and release its browser", fn: sessions.Pause},
		{op: "resume", summary: "Mark a paused session active", fn: sessions.Resume},
		{op: "stop", summary: "Stop a session, keeping it registered", fn: sessions.Stop},
	}
	for _, l := range lifecycle {
		huma.Register(api, huma.Operation{
			OperationID: l.op + "-session",
			Method:      http.MethodPost,
			Path:        "/sessions/{id}/" + l.op,
			Summary:     l.summary,
			Tags:        []string{"Sessions"},
		}, func(_ context.Context, input *SessionPathInput) (*StatusOutput, error) {
			sess, ok := sessions.Get(input.ID)
			if !ok {
				return nil, sessionNotFound(input.ID)
			}
			if !l.fn(input.ID) {
				return nil, huma.Error409Conflict("cannot " + l.op + " session in status " + string(sess.Status()))
			}
			return statusOK("ok"), nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "delete-session",
		Method:      http.MethodDelete,
		Path:        "/sessions/{id}",
		Summary:     "Delete a session",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *DeleteSessionInput) (*StatusOutput, error) {
		found, err := sessions.Delete(input.ID, input.Purge)
		if !found {
			return nil, sessionNotFound(input.ID)
		}
		if err != nil {
			return nil, toHTTPError(err, "failed to purge profile")
		}
		return statusOK("ok"), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-session-events",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/events",
		Summary:     "List a session's recorded events, oldest first",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *ListEventsInput) (*ListEventsOutput, error) {
		var since time.Time
		if input.Since != "" {
			t, err := time.Parse(time.RFC3339Nano, input.Since)
			if err != nil {
				return nil, huma.Error400BadRequest("invalid since cursor: " + err.Error())
			}
			since = t
		}

		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		return &ListEventsOutput{Body: sess.History(ctx, since, input.Limit)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-session-metadata",
		Method:      http.MethodPut,
		Path:        "/sessions/{id}/metadata/{key}",
		Summary:     "Set a session metadata value",
		Tags:        []string{"Sessions"},
	}, func(_ context.Context, input *UpdateMetadataInput) (*StatusOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		sess.UpdateMetadata(input.Key, input.Body.Value)
		return statusOK("ok"), nil
	})
}
