package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// PreferenceHandler handles notification preference endpoints.
type PreferenceHandler struct {
	prefs *service.PreferenceService
}

// NewPreferenceHandler creates a new PreferenceHandler.
func NewPreferenceHandler(prefs *service.PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// Register wires the preference routes.
func (h *PreferenceHandler) Register(g *echo.Group) {
	g.GET("", h.Get)
	g.PATCH("", h.Update)
}

func orgIDParam(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.QueryParam("org_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: "org_id", Message: "must be a positive integer"}
	}
	return id, nil
}

// Get returns the caller's preferences for an organization, creating the
// defaults on first access.
func (h *PreferenceHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := orgIDParam(c)
	if err != nil {
		return err
	}

	pref, err := h.prefs.Get(c.Request().Context(), uid, orgID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, pref)
}

type updatePreferenceRequest struct {
	OrgID  int64                    `json:"org_id" validate:"required,gt=0"`
	Update service.PreferenceUpdate `json:"update"`
}

// Update applies a partial preference update for the caller.
func (h *PreferenceHandler) Update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var body updatePreferenceRequest
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	pref, err := h.prefs.Update(c.Request().Context(), uid, body.OrgID, body.Update)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, pref)
}
