package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ferticare/portal/internal/domain/workflow"
)

// FromError maps workflow error families onto HTTP status codes: validation
// failures are 400, state conflicts are 409, missing rows are 404. Anything
// else is a 500.
func FromError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case workflow.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case workflow.IsStateError(err):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
