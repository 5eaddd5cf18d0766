package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// OrgHandler handles organization endpoints.
type OrgHandler struct {
	orgs *service.OrgService
}

// NewOrgHandler creates a new OrgHandler.
func NewOrgHandler(orgs *service.OrgService) *OrgHandler {
	return &OrgHandler{orgs: orgs}
}

// Register wires the organization routes.
func (h *OrgHandler) Register(api *echo.Group) {
	api.POST("/orgs", h.Create)
	api.GET("/orgs", h.ListMine)
	api.GET("/orgs/:id", h.Get)
	api.POST("/orgs/:id/members", h.AddMember)
}

// Create creates an organization owned by the caller.
func (h *OrgHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var body struct {
		Name string `json:"name" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	org, err := h.orgs.Create(c.Request().Context(), uid, body.Name)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, org)
}

// ListMine lists the caller's organizations.
func (h *OrgHandler) ListMine(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	orgs, err := h.orgs.ListMine(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, orgs)
}

// Get returns one organization.
func (h *OrgHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	org, err := h.orgs.Get(c.Request().Context(), orgID, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, org)
}

// AddMember adds a user to the organization.
func (h *OrgHandler) AddMember(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body struct {
		UserID int64             `json:"user_id" validate:"required,gt=0"`
		Role   domain.MemberRole `json:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	m, err := h.orgs.AddMember(c.Request().Context(), orgID, uid, body.UserID, body.Role)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, m)
}
