package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// ReportHandler handles weekly report endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Register wires the report routes.
func (h *ReportHandler) Register(api *echo.Group) {
	api.POST("/orgs/:id/reports", h.Create)
	api.GET("/orgs/:id/reports", h.List)
	api.GET("/reports/:id", h.Get)
	api.PATCH("/reports/:id", h.Update)
	api.POST("/reports/:id/submit", h.Submit)
}

// Create creates a draft report for the caller.
func (h *ReportHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body service.ReportInput
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	report, err := h.reports.Create(c.Request().Context(), orgID, uid, body)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, report)
}

// List lists the organization's reports.
func (h *ReportHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	reports, err := h.reports.List(c.Request().Context(), orgID, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, reports)
}

// Get returns one report.
func (h *ReportHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	report, err := h.reports.Get(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, report)
}

// Update edits the caller's draft report.
func (h *ReportHandler) Update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body service.ReportInput
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	report, err := h.reports.Update(c.Request().Context(), id, uid, body)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, report)
}

// Submit submits the caller's draft report.
func (h *ReportHandler) Submit(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	report, err := h.reports.Submit(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, report)
}
