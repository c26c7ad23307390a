package v1

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/wabot/internal/automation"
	"github.com/gosuda/wabot/internal/domain"
)

// toHTTPError maps domain sentinels to problem responses. msg prefixes the
// detail of server errors.
func toHTTPError(err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrProfileRequired),
		errors.Is(err, domain.ErrPrecondition):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrNoDriver),
		errors.Is(err, domain.ErrNotLoggedOut):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, automation.ErrElementNotFound):
		return huma.Error422UnprocessableEntity(err.Error())
	default:
		log.Error().Err(err).Msg("api.v1: " + msg)
		return huma.Error500InternalServerError(msg, err)
	}
}

func sessionNotFound(id string) error {
	return huma.Error404NotFound("session not found: " + id)
}
