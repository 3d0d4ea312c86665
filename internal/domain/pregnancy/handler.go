package pregnancy

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/anc/internal/domain/triage"
	"github.com/ehr/anc/internal/platform/auth"
	"github.com/ehr/anc/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Catalog and own record – every signed-in role
	selfGroup := api.Group("", auth.RequireRole(auth.RoleMidwife, auth.RolePatient))
	selfGroup.GET("/risk-factors", h.ListRiskFactors)
	selfGroup.GET("/me/assessment", h.GetOwnAssessment)
	selfGroup.GET("/me/checklist", h.GetOwnChecklist)
	selfGroup.POST("/me/checklist/:task/toggle", h.ToggleOwnTask)

	// Read endpoints – admin, midwife
	readGroup := api.Group("", auth.RequireRole(auth.RoleMidwife))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetPatient)
	readGroup.GET("/patients/:id/assessment", h.GetAssessment)
	readGroup.GET("/patients/:id/visits", h.ListVisits)
	readGroup.GET("/visits/:id", h.GetVisit)
	readGroup.GET("/alerts", h.ListAlerts)

	// Write endpoints – admin, midwife
	writeGroup := api.Group("", auth.RequireRole(auth.RoleMidwife))
	writeGroup.POST("/patients", h.RegisterPatient)
	writeGroup.PUT("/patients/:id", h.UpdatePatient)
	writeGroup.POST("/patients/:id/visits", h.RecordVisit)
	writeGroup.PUT("/visits/:id", h.UpdateVisit)
	writeGroup.POST("/patients/:id/delivery", h.RecordDelivery)
	writeGroup.POST("/patients/:id/new-pregnancy", h.StartNewPregnancy)
	writeGroup.DELETE("/patients/:id/history/:deliveryId", h.RemoveDeliveryHistory)
	writeGroup.POST("/alerts/:id/read", h.MarkAlertRead)

	// Destructive endpoints – admin only
	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.PUT("/patients/:id/active", h.SetActive)
	adminGroup.DELETE("/patients/:id", h.DeletePatient)
	adminGroup.DELETE("/visits/:id", h.DeleteVisit)
}

// httpError maps service errors onto HTTP status codes.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// optionalDate reads an optional calendar date field. Blank means unset.
func optionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, ok := triage.ParseDate(s)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+field)
	}
	return &t, nil
}

// -- Catalog --

func (h *Handler) ListRiskFactors(c echo.Context) error {
	cat := h.svc.Catalog()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"base_score": triage.BaseScore,
		"factors":    cat.Factors(),
	})
}

// -- Patient Handlers --

// patientRequest is the patient body as clients send it. Its date fields
// are plain YYYY-MM-DD strings and shadow the time fields of Patient.
type patientRequest struct {
	Patient
	DateOfBirth         string `json:"date_of_birth"`
	LastMenstrualPeriod string `json:"last_menstrual_period"`
}

func (r *patientRequest) patient() (*Patient, error) {
	p := r.Patient
	var err error
	if p.DateOfBirth, err = optionalDate("date_of_birth", r.DateOfBirth); err != nil {
		return nil, err
	}
	if p.LastMenstrualPeriod, err = optionalDate("last_menstrual_period", r.LastMenstrualPeriod); err != nil {
		return nil, err
	}
	return &p, nil
}

func bindPatient(c echo.Context) (*Patient, error) {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req.patient()
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	p, err := bindPatient(c)
	if err != nil {
		return err
	}
	if err := h.svc.RegisterPatient(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	p, err := bindPatient(c)
	if err != nil {
		return err
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (h *Handler) SetActive(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req activeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Active == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "active is required")
	}
	p, err := h.svc.SetActive(c.Request().Context(), id, *req.Active)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Assessment Handlers --

func (h *Handler) GetAssessment(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.Assess(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

// ownPatient resolves the patient record linked to the signed-in account.
func (h *Handler) ownPatient(c echo.Context) (*Patient, error) {
	ctx := c.Request().Context()
	userID, err := uuid.Parse(auth.UserIDFromContext(ctx))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusForbidden, "no patient record for this account")
	}
	p, err := h.svc.GetPatientByUser(ctx, userID)
	if err != nil {
		return nil, httpError(err)
	}
	return p, nil
}

func (h *Handler) GetOwnAssessment(c echo.Context) error {
	ctx := c.Request().Context()
	p, err := h.ownPatient(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Assess(ctx, p.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetOwnChecklist(c echo.Context) error {
	p, err := h.ownPatient(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.Checklist(c.Request().Context(), p.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *Handler) ToggleOwnTask(c echo.Context) error {
	p, err := h.ownPatient(c)
	if err != nil {
		return err
	}
	cl, err := h.svc.ToggleTask(c.Request().Context(), p.ID, c.Param("task"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cl)
}

// -- Visit Handlers --

// visitRequest is the visit body as clients send it, with date-only
// strings in place of the time fields of Visit.
type visitRequest struct {
	Visit
	VisitDate     string `json:"visit_date"`
	ScheduledDate string `json:"scheduled_date"`
	NextVisitDate string `json:"next_visit_date"`
}

func (r *visitRequest) visit() (*Visit, error) {
	v := r.Visit
	date, err := optionalDate("visit_date", r.VisitDate)
	if err != nil {
		return nil, err
	}
	if date != nil {
		v.VisitDate = *date
	}
	if v.ScheduledDate, err = optionalDate("scheduled_date", r.ScheduledDate); err != nil {
		return nil, err
	}
	if v.NextVisitDate, err = optionalDate("next_visit_date", r.NextVisitDate); err != nil {
		return nil, err
	}
	return &v, nil
}

func bindVisit(c echo.Context) (*Visit, error) {
	var req visitRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req.visit()
}

type visitResponse struct {
	Visit      *Visit      `json:"visit"`
	Assessment *Assessment `json:"assessment"`
}

func (h *Handler) RecordVisit(c echo.Context) error {
	patientID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v, err := bindVisit(c)
	if err != nil {
		return err
	}
	v.PatientID = patientID
	a, err := h.svc.RecordVisit(c.Request().Context(), v)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, visitResponse{Visit: v, Assessment: a})
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.svc.GetVisit(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) ListVisits(c echo.Context) error {
	patientID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListVisits(c.Request().Context(), patientID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateVisit(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	v, err := bindVisit(c)
	if err != nil {
		return err
	}
	v.ID = id
	if err := h.svc.UpdateVisit(c.Request().Context(), v); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) DeleteVisit(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteVisit(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Pregnancy Cycle Handlers --

type deliveryRequest struct {
	DeliveryDate string  `json:"delivery_date"`
	BabyName     string  `json:"baby_name"`
	BabyGender   string  `json:"baby_gender"`
	BirthWeight  int     `json:"birth_weight"`
	BirthLength  float64 `json:"birth_length"`
	MotherStatus string  `json:"mother_status"`
	BabyStatus   string  `json:"baby_status"`
	Condition    string  `json:"condition"`
}

func (h *Handler) RecordDelivery(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req deliveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	date, ok := triage.ParseDate(req.DeliveryDate)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid delivery_date")
	}
	p, err := h.svc.RecordDelivery(c.Request().Context(), id, DeliveryRecord{
		DeliveryDate: date,
		BabyName:     req.BabyName,
		BabyGender:   req.BabyGender,
		BirthWeight:  req.BirthWeight,
		BirthLength:  req.BirthLength,
		MotherStatus: req.MotherStatus,
		BabyStatus:   req.BabyStatus,
		Condition:    req.Condition,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

type newPregnancyRequest struct {
	LastMenstrualPeriod string `json:"last_menstrual_period"`
}

func (h *Handler) StartNewPregnancy(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req newPregnancyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lmp, ok := triage.ParseDate(req.LastMenstrualPeriod)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid last_menstrual_period")
	}
	p, err := h.svc.StartNewPregnancy(c.Request().Context(), id, lmp)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RemoveDeliveryHistory(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	deliveryID, err := parseID(c, "deliveryId")
	if err != nil {
		return err
	}
	p, err := h.svc.RemoveDeliveryHistory(c.Request().Context(), id, deliveryID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// -- Alert Handlers --

func (h *Handler) ListAlerts(c echo.Context) error {
	pg := pagination.FromContext(c)
	unread := c.QueryParam("unread") == "true"
	items, total, err := h.svc.ListAlerts(c.Request().Context(), unread, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkAlertRead(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.MarkAlertRead(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
