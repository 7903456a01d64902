package treatment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ferticare/portal/internal/domain/assigndrug"
	"github.com/ferticare/portal/internal/domain/schedule"
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
	read.GET("/treatments", h.List)
	read.GET("/treatments/:id", h.Get)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor))
	write.POST("/treatments", h.Create)
	write.PUT("/treatments/next-phase/:id", h.MoveToNextPhase)
	write.PUT("/treatments/cancel/:id", h.Cancel)
	write.PUT("/treatment-phases/set", h.SetPhase)
}

type createPhaseRequest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Position    int         `json:"position"`
	ServiceIDs  []uuid.UUID `json:"service_ids"`
	DrugIDs     []uuid.UUID `json:"drug_ids"`
}

type createTreatmentRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	PatientID   uuid.UUID            `json:"patient_id"`
	DoctorID    uuid.UUID            `json:"doctor_id"`
	PaymentMode workflow.PaymentMode `json:"payment_mode"`
	Phases      []createPhaseRequest `json:"phases"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createTreatmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	t := &Treatment{
		Title:       req.Title,
		Description: req.Description,
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		PaymentMode: req.PaymentMode,
	}
	for _, pr := range req.Phases {
		p := &Phase{Title: pr.Title, Description: pr.Description, Position: pr.Position}
		for _, sid := range pr.ServiceIDs {
			p.Items = append(p.Items, &PhaseItem{ItemID: sid, Kind: ItemService})
		}
		for _, did := range pr.DrugIDs {
			p.Items = append(p.Items, &PhaseItem{ItemID: did, Kind: ItemDrug})
		}
		t.Phases = append(t.Phases, p)
	}

	created, err := h.svc.Create(c.Request().Context(), t)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	var doctorID, patientID uuid.UUID
	if raw := c.QueryParam("doctorId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctorId")
		}
		doctorID = id
	}
	if raw := c.QueryParam("patientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patientId")
		}
		patientID = id
	}
	items, total, err := h.svc.List(c.Request().Context(), doctorID, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MoveToNextPhase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.MoveToNextPhase(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	t, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, t)
}

type setScheduleRequest struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	DoctorID     uuid.UUID   `json:"doctor_id"`
	PatientID    uuid.UUID   `json:"patient_id"`
	StartTime    string      `json:"start_time"`
	EstimatedEnd string      `json:"estimated_end"`
	ServiceIDs   []uuid.UUID `json:"service_ids"`
}

type setAssignDrugItemRequest struct {
	DrugID   uuid.UUID `json:"drug_id"`
	Quantity int       `json:"quantity"`
	Dosage   *string   `json:"dosage"`
}

type setAssignDrugRequest struct {
	DoctorID uuid.UUID                  `json:"doctor_id"`
	Note     *string                    `json:"note"`
	Items    []setAssignDrugItemRequest `json:"items"`
}

type setPhaseRequest struct {
	PhaseID     uuid.UUID              `json:"phase_id"`
	Schedules   []setScheduleRequest   `json:"schedules"`
	AssignDrugs []setAssignDrugRequest `json:"assign_drugs"`
}

func (h *Handler) SetPhase(c echo.Context) error {
	var req setPhaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PhaseID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "phase_id is required")
	}

	in := SetPhaseInput{PhaseID: req.PhaseID}
	for _, sr := range req.Schedules {
		start, err := workflow.ParseWireTime(sr.StartTime)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid start_time")
		}
		end, err := workflow.ParseWireTime(sr.EstimatedEnd)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid estimated_end")
		}
		in.Schedules = append(in.Schedules, &schedule.Schedule{
			ID:           sr.ID,
			Title:        sr.Title,
			DoctorID:     sr.DoctorID,
			PatientID:    sr.PatientID,
			StartTime:    start,
			EstimatedEnd: end,
			ServiceIDs:   sr.ServiceIDs,
		})
	}
	for _, ar := range req.AssignDrugs {
		ad := &assigndrug.AssignDrug{DoctorID: ar.DoctorID, Note: ar.Note}
		for _, it := range ar.Items {
			ad.Items = append(ad.Items, &assigndrug.Item{
				DrugID:   it.DrugID,
				Quantity: it.Quantity,
				Dosage:   it.Dosage,
			})
		}
		in.AssignDrugs = append(in.AssignDrugs, ad)
	}

	phase, err := h.svc.SetPhase(c.Request().Context(), in)
	if err != nil {
		return httperr.FromError(err)
	}
	return c.JSON(http.StatusOK, phase)
}
