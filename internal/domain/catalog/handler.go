package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ferticare/portal/internal/platform/auth"
	"github.com/ferticare/portal/internal/platform/httperr"
	"github.com/ferticare/portal/pkg/pagination"
)

type Handler struct {
	svc *CatalogService
}

func NewHandler(svc *CatalogService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleManager, auth.RolePatient))
	read.GET("/services", h.SearchServices)
	read.GET("/services/:id", h.GetService)
	read.GET("/drugs", h.SearchDrugs)
	read.GET("/drugs/:id", h.GetDrug)

	write := api.Group("", auth.RequireRole(auth.RoleAdmin))
	write.POST("/services", h.CreateService)
	write.POST("/drugs", h.CreateDrug)
}

func (h *Handler) SearchServices(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchServices(c.Request().Context(), c.QueryParam("name"), pg.Limit, pg.Offset)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	svc, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, svc)
}

func (h *Handler) CreateService(c echo.Context) error {
	var svc Service
	if err := c.Bind(&svc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateService(c.Request().Context(), &svc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, svc)
}

func (h *Handler) SearchDrugs(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchDrugs(c.Request().Context(), c.QueryParam("name"), pg.Limit, pg.Offset)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetDrug(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	d, err := h.svc.GetDrug(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) CreateDrug(c echo.Context) error {
	var d Drug
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateDrug(c.Request().Context(), &d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}
