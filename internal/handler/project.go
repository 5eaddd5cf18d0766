package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// ProjectHandler handles project endpoints.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Register wires the project routes.
func (h *ProjectHandler) Register(api *echo.Group) {
	api.POST("/orgs/:id/projects", h.Create)
	api.GET("/orgs/:id/projects", h.List)
	api.GET("/projects/:id", h.Get)
	api.PATCH("/projects/:id", h.Update)
	api.DELETE("/projects/:id", h.Delete)
}

type projectRequest struct {
	service.ProjectInput
	Status domain.ProjectStatus `json:"status"`
}

// Create creates a project in the organization.
func (h *ProjectHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body projectRequest
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	project, err := h.projects.Create(c.Request().Context(), orgID, uid, body.ProjectInput)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, project)
}

// List lists the organization's projects.
func (h *ProjectHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	projects, err := h.projects.List(c.Request().Context(), orgID, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, projects)
}

// Get returns one project.
func (h *ProjectHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	project, err := h.projects.Get(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, project)
}

// Update overwrites a project's mutable fields.
func (h *ProjectHandler) Update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body projectRequest
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	project, err := h.projects.Update(c.Request().Context(), id, uid, body.ProjectInput, body.Status)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, project)
}

// Delete removes a project.
func (h *ProjectHandler) Delete(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.projects.Delete(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
