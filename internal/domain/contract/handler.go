package contract

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ferticare/portal/internal/platform/auth"
	"github.com/ferticare/portal/internal/platform/httperr"
	"github.com/ferticare/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleManager, auth.RolePatient))
	read.GET("/contracts", h.List)
	read.GET("/contracts/:id", h.Get)
	read.GET("/treatments/:id/contract", h.GetByTreatment)

	sign := api.Group("", auth.RequireRole(auth.RolePatient))
	sign.PUT("/contracts/sign/:id", h.Sign)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	var signed *bool
	if raw := c.QueryParam("signed"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signed filter")
		}
		signed = &v
	}
	items, total, err := h.svc.List(c.Request().Context(), signed, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ct, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, ct)
}

func (h *Handler) GetByTreatment(c echo.Context) error {
	tid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ct, err := h.svc.GetByTreatment(c.Request().Context(), tid)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, ct)
}

func (h *Handler) Sign(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	signedBy := auth.UserIDFromContext(c.Request().Context())
	ct, err := h.svc.Sign(c.Request().Context(), id, signedBy)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, ct)
}
