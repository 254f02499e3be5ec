package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.waggle/internal/model"
)

// httpError maps service sentinels onto HTTP statuses. Anything unrecognized
// falls through to echo's default 500 handling.
func httpError(err error) error {
	switch {
	case errors.Is(err, model.ErrorUserNotFound),
		errors.Is(err, model.ErrorEntityNotFound),
		errors.Is(err, model.ErrorConversationNotFound),
		errors.Is(err, model.ErrorMessageNotFound),
		errors.Is(err, model.ErrorNotificationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, model.ErrorNotParticipant),
		errors.Is(err, model.ErrorNotSender):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, model.ErrorSelfRelationship),
		errors.Is(err, model.ErrorSelfConversation),
		errors.Is(err, model.ErrorEmptyContent),
		errors.Is(err, model.ErrorContentTooLong),
		errors.Is(err, model.ErrorEditWindowClosed),
		errors.Is(err, model.ErrorInvalidReply),
		errors.Is(err, model.ErrorInvalidRelationshipKind):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.Is(err, model.ErrorInvalidToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return err
}
