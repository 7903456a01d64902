package schedule

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ferticare/portal/internal/domain/workflow"
	"github.com/ferticare/portal/internal/platform/auth"
	"github.com/ferticare/portal/internal/platform/httperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleManager, auth.RolePatient))
	read.GET("/schedules", h.List)
	read.GET("/schedules/:id", h.Get)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor))
	write.PUT("/schedules/:id/done", h.MarkDone)
	write.PUT("/schedules/:id/reschedule", h.Reschedule)
	write.PUT("/schedules/:id/cancel", h.Cancel)
}

func (h *Handler) List(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctorId")
	}
	from, err := workflow.ParseWireTime(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from")
	}
	to, err := workflow.ParseWireTime(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to")
	}
	status := workflow.ScheduleStatus(c.QueryParam("status"))

	items, err := h.svc.ListByDoctor(c.Request().Context(), doctorID, from, to, status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) MarkDone(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.MarkDone(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, sc)
}

type rescheduleRequest struct {
	StartTime    string `json:"start_time"`
	EstimatedEnd string `json:"estimated_end"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	start, err := workflow.ParseWireTime(req.StartTime)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid start_time")
	}
	end, err := workflow.ParseWireTime(req.EstimatedEnd)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid estimated_end")
	}
	sc, err := h.svc.Reschedule(c.Request().Context(), id, start, end)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, sc)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sc, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, sc)
}
