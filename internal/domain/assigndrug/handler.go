package assigndrug

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
	read.GET("/assign-drugs", h.List)
	read.GET("/assign-drugs/:id", h.Get)
	read.GET("/treatments/:id/assign-drugs", h.ListByTreatment)

	prescribe := api.Group("", auth.RequireRole(auth.RoleDoctor))
	prescribe.POST("/assign-drugs", h.Create)

	dispense := api.Group("", auth.RequireRole(auth.RoleManager))
	dispense.POST("/assign-drugs/taken/:id", h.MarkTaken)
	dispense.POST("/assign-drugs/cancel/:id", h.Cancel)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	status := workflow.AssignDrugStatus(c.QueryParam("status"))
	items, total, err := h.svc.List(c.Request().Context(), status, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Create(c echo.Context) error {
	var a AssignDrug
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &a); err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, a)
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

func (h *Handler) MarkTaken(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.MarkTaken(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, a)
}
