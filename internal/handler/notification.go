package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// NotificationHandler handles the notification endpoints.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// Register wires the user-facing notification routes.
func (h *NotificationHandler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/unread-count", h.UnreadCount)
	g.POST("/read", h.MarkManyRead)
	g.POST("/read-all", h.MarkAllRead)
	g.POST("/:id/read", h.MarkRead)
	g.DELETE("/:id", h.Delete)
}

// RegisterInternal wires the service-to-service routes.
func (h *NotificationHandler) RegisterInternal(g *echo.Group) {
	g.POST("/notifications", h.Create)
	g.POST("/notifications/bulk", h.CreateBulk)
	g.POST("/notifications/cleanup", h.Cleanup)
}

// List returns one page of the caller's notifications plus the unread count.
func (h *NotificationHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	filter := domain.NotificationFilter{
		Category:   domain.NotificationCategory(c.QueryParam("category")),
		Type:       domain.NotificationType(c.QueryParam("type")),
		UnreadOnly: c.QueryParam("unread") == "true",
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 20)

	result, err := h.notifications.List(c.Request().Context(), uid, filter, page, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Envelope{
		Data: map[string]any{
			"items":        result.Items,
			"unread_count": result.UnreadCount,
		},
		Meta: &PaginationMeta{
			Page:       result.Page,
			TotalPages: result.TotalPages,
			Total:      result.Total,
		},
	})
}

// UnreadCount returns the caller's unread notification count.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	count, err := h.notifications.UnreadCount(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]int{"unread_count": count})
}

// MarkRead marks one notification read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.notifications.MarkRead(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]bool{"read": true})
}

// MarkManyRead marks a set of notifications read, silently skipping ids the
// caller does not own.
func (h *NotificationHandler) MarkManyRead(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var body struct {
		IDs []int64 `json:"ids" validate:"required,min=1"`
	}
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	if err := h.notifications.MarkManyRead(c.Request().Context(), body.IDs, uid); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]bool{"read": true})
}

// MarkAllRead marks every unread notification of the caller read.
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	affected, err := h.notifications.MarkAllRead(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]int64{"marked": affected})
}

// Delete removes one of the caller's notifications.
func (h *NotificationHandler) Delete(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.notifications.Delete(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type createNotificationRequest struct {
	RecipientID int64               `json:"recipient_id" validate:"required,gt=0"`
	OrgID       int64               `json:"org_id" validate:"required,gt=0"`
	Content     service.CreateInput `json:"content"`
	SendNow     bool                `json:"send_now"`
}

// Create persists one notification on behalf of another service.
func (h *NotificationHandler) Create(c echo.Context) error {
	var body createNotificationRequest
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	created, err := h.notifications.Create(c.Request().Context(), body.RecipientID, body.OrgID, body.Content, body.SendNow)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, map[string]int64{"id": created.ID})
}

type createBulkRequest struct {
	RecipientIDs []int64             `json:"recipient_ids" validate:"required,min=1"`
	OrgID        int64               `json:"org_id" validate:"required,gt=0"`
	Content      service.CreateInput `json:"content"`
	SendNow      bool                `json:"send_now"`
}

// CreateBulk fans one notification out to many recipients. Partial success
// returns the ids that were created.
func (h *NotificationHandler) CreateBulk(c echo.Context) error {
	var body createBulkRequest
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	ids, err := h.notifications.CreateBulk(c.Request().Context(), body.RecipientIDs, body.OrgID, body.Content, body.SendNow)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, map[string]any{"ids": ids, "created": len(ids)})
}

// Cleanup deletes notifications older than the requested retention window.
func (h *NotificationHandler) Cleanup(c echo.Context) error {
	var body struct {
		DaysToKeep int `json:"days_to_keep" validate:"required,gt=0"`
	}
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	deleted, err := h.notifications.Cleanup(c.Request().Context(), body.DaysToKeep)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, map[string]int64{"deleted": deleted})
}
