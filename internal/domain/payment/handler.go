package payment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ferticare/portal/internal/domain/workflow"
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
	read.GET("/payments", h.List)
	read.GET("/payments/:id", h.Get)
	read.GET("/treatments/:id/payments", h.ListByTreatment)

	write := api.Group("", auth.RequireRole(auth.RoleManager))
	write.PUT("/payments/:id/complete", h.Complete)
	write.PUT("/payments/:id/cancel", h.Cancel)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := workflow.PaymentStatus(c.QueryParam("status"))
	items, total, err := h.svc.List(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListByTreatment(c echo.Context) error {
	tid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListByTreatment(c.Request().Context(), tid)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Complete(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, p)
}
