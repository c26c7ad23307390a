package v1

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gosuda/wabot/internal/domain"
)

type AgentPathInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Kind string `path:"kind" doc:"Agent kind (autoreply, auto_outreach)"`
}

type EnableAgentBody struct {
	Config map[string]any `json:"config,omitempty" doc:"Agent configuration; omit to keep a running agent as is"`
}

type EnableAgentInput struct {
	ID   string           `path:"id" doc:"Session ID"`
	Kind string           `path:"kind" doc:"Agent kind (autoreply, auto_outreach)"`
	Body *EnableAgentBody `required:"false"`
}

type AgentOutput struct {
	Body domain.AgentInfo
}

type ListAgentsOutput struct {
	Body map[domain.AgentKind]domain.AgentInfo
}

type AddContactsInput struct {
	ID   string `path:"id" doc:"Session ID"`
	Body struct {
		Contacts []string `json:"contacts" minItems:"1" doc:"Phone numbers to append to the campaign"`
	}
}

type AddContactsOutput struct {
	Body struct {
		Added int              `json:"added"`
		Agent domain.AgentInfo `json:"agent"`
	}
}

// lookupAgent resolves the session and validates the kind.
func lookupAgent(sessions SessionService, id, kind string) (Session, domain.AgentKind, error) {
	sess, ok := sessions.Get(id)
	if !ok {
		return nil, "", sessionNotFound(id)
	}
	k, err := domain.ParseAgentKind(kind)
	if err != nil {
		return nil, "", huma.Error400BadRequest(fmt.Sprintf("invalid agent kind %q", kind))
	}
	return sess, k, nil
}

func agentInfo(sess Session, kind domain.AgentKind) *AgentOutput {
	return &AgentOutput{Body: sess.AgentStatuses()[kind]}
}

func RegisterAgentRoutes(api huma.API, sessions SessionService) {
	huma.Register(api, huma.Operation{
		OperationID: "list-agents",
		Method:      http.MethodGet,
		Path:        "/sessions/{id}/agents",
		Summary:     "List the session's agents",
		Tags:        []string{"Agents"},
	}, func(_ context.Context, input *SessionPathInput) (*ListAgentsOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		return &ListAgentsOutput{Body: sess.AgentStatuses()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "enable-agent",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/agents/{kind}/enable",
		Summary:     "Start an agent, or restart it with a new configuration",
		Tags:        []string{"Agents"},
	}, func(_ context.Context, input *EnableAgentInput) (*AgentOutput, error) {
		sess, kind, err := lookupAgent(sessions, input.ID, input.Kind)
		if err != nil {
			return nil, err
		}
		var config map[string]any
		if input.Body != nil {
			config = input.Body.Config
		}
		if err := sess.EnableAgent(kind, config); err != nil {
			return nil, toHTTPError(err, "failed to enable agent")
		}
		return agentInfo(sess, kind), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "disable-agent",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/agents/{kind}/disable",
		Summary:     "Stop an agent and discard its running state",
		Tags:        []string{"Agents"},
	}, func(_ context.Context, input *AgentPathInput) (*AgentOutput, error) {
		sess, kind, err := lookupAgent(sessions, input.ID, input.Kind)
		if err != nil {
			return nil, err
		}
		found, err := sess.DisableAgent(kind)
		if !found {
			return nil, huma.Error404NotFound("agent not found: " + input.Kind)
		}
		if err != nil {
			return nil, toHTTPError(err, "failed to disable agent")
		}
		return agentInfo(sess, kind), nil
	})

	control := []struct {
		op, summary string
		fn          func(Session, domain.AgentKind) bool
	}{
		{op: "pause", summary: "Pause a running agent", fn: Session.PauseAgent},
		{op: "resume", summary: "Resume a paused agent", fn: Session.ResumeAgent},
	}
	for _, c := range control {
		huma.Register(api, huma.Operation{
			OperationID: c.op + "-agent",
			Method:      http.MethodPost,
			Path:        "/sessions/{id}/agents/{kind}/" + c.op,
			Summary:     c.summary,
			Tags:        []string{"Agents"},
		}, func(_ context.Context, input *AgentPathInput) (*AgentOutput, error) {
			sess, kind, err := lookupAgent(sessions, input.ID, input.Kind)
			if err != nil {
				return nil, err
			}
			if !c.fn(sess, kind) {
				status := sess.AgentStatuses()[kind].Status
				if status == "" || status == domain.AgentStatusDisabled {
					return nil, huma.Error404NotFound("agent not running: " + input.Kind)
				}
				return nil, huma.Error409Conflict(fmt.Sprintf("cannot %s agent in status %s", c.op, status))
			}
			return agentInfo(sess, kind), nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "add-outreach-contacts",
		Method:      http.MethodPost,
		Path:        "/sessions/{id}/agents/auto_outreach/contacts",
		Summary:     "Append contacts to a running outreach campaign",
		Tags:        []string{"Agents"},
	}, func(_ context.Context, input *AddContactsInput) (*AddContactsOutput, error) {
		sess, ok := sessions.Get(input.ID)
		if !ok {
			return nil, sessionNotFound(input.ID)
		}
		added, err := sess.AddContacts(input.Body.Contacts)
		if err != nil {
			return nil, toHTTPError(err, "failed to add contacts")
		}
		out := &AddContactsOutput{}
		out.Body.Added = added
		out.Body.Agent = sess.AgentStatuses()[domain.AgentKindAutoOutreach]
		return out, nil
	})
}
