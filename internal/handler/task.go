package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// TaskHandler handles task endpoints.
type TaskHandler struct {
	tasks *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks *service.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// Register wires the task routes.
func (h *TaskHandler) Register(api *echo.Group) {
	api.POST("/projects/:id/tasks", h.Create)
	api.GET("/projects/:id/tasks", h.List)
	api.GET("/tasks/:id", h.Get)
	api.PATCH("/tasks/:id", h.Update)
	api.DELETE("/tasks/:id", h.Delete)
}

// Create creates a task in the project.
func (h *TaskHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body service.TaskInput
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	task, err := h.tasks.Create(c.Request().Context(), projectID, uid, body)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, task)
}

// List lists a project's tasks.
func (h *TaskHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	projectID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	tasks, err := h.tasks.List(c.Request().Context(), projectID, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, tasks)
}

// Get returns one task.
func (h *TaskHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	task, err := h.tasks.Get(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, task)
}

// Update overwrites a task's mutable fields.
func (h *TaskHandler) Update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body service.TaskInput
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	task, err := h.tasks.Update(c.Request().Context(), id, uid, body)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.tasks.Delete(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
