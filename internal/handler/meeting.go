package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// MeetingHandler handles meeting endpoints.
type MeetingHandler struct {
	meetings *service.MeetingService
}

// NewMeetingHandler creates a new MeetingHandler.
func NewMeetingHandler(meetings *service.MeetingService) *MeetingHandler {
	return &MeetingHandler{meetings: meetings}
}

// Register wires the meeting routes.
func (h *MeetingHandler) Register(api *echo.Group) {
	api.POST("/orgs/:id/meetings", h.Create)
	api.GET("/orgs/:id/meetings", h.List)
	api.GET("/meetings/:id", h.Get)
	api.POST("/meetings/:id/cancel", h.Cancel)
}

// Create schedules a meeting.
func (h *MeetingHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body service.MeetingInput
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	meeting, err := h.meetings.Create(c.Request().Context(), orgID, uid, body)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, meeting)
}

// List lists the organization's meetings starting at the `from` query
// parameter (RFC 3339), defaulting to now.
func (h *MeetingHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	from := time.Now()
	if raw := c.QueryParam("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return &domain.ValidationError{Field: "from", Message: "must be an RFC 3339 timestamp"}
		}
		from = parsed
	}

	meetings, err := h.meetings.List(c.Request().Context(), orgID, uid, from)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, meetings)
}

// Get returns one meeting.
func (h *MeetingHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	meeting, err := h.meetings.Get(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, meeting)
}

// Cancel cancels a meeting.
func (h *MeetingHandler) Cancel(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	meeting, err := h.meetings.Cancel(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, meeting)
}
