package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// ArticleHandler handles knowledge-base article endpoints.
type ArticleHandler struct {
	articles *service.ArticleService
}

// NewArticleHandler creates a new ArticleHandler.
func NewArticleHandler(articles *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{articles: articles}
}

// Register wires the article routes.
func (h *ArticleHandler) Register(api *echo.Group) {
	api.POST("/orgs/:id/articles", h.Create)
	api.GET("/orgs/:id/articles", h.List)
	api.GET("/articles/:id", h.Get)
	api.PATCH("/articles/:id", h.Update)
	api.POST("/articles/:id/publish", h.Publish)
	api.DELETE("/articles/:id", h.Delete)
}

// Create creates an unpublished article.
func (h *ArticleHandler) Create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body service.ArticleInput
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	article, err := h.articles.Create(c.Request().Context(), orgID, uid, body)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, article)
}

// List lists the organization's articles. `published=true` hides drafts.
func (h *ArticleHandler) List(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	orgID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	articles, err := h.articles.List(c.Request().Context(), orgID, uid, c.QueryParam("published") == "true")
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, articles)
}

// Get returns one article.
func (h *ArticleHandler) Get(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	article, err := h.articles.Get(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, article)
}

// Update overwrites an article's content.
func (h *ArticleHandler) Update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var body service.ArticleInput
	if err := c.Bind(&body); err != nil {
		return domain.ErrInvalidInput
	}

	article, err := h.articles.Update(c.Request().Context(), id, uid, body)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, article)
}

// Publish marks an article published.
func (h *ArticleHandler) Publish(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	article, err := h.articles.Publish(c.Request().Context(), id, uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, article)
}

// Delete removes an article.
func (h *ArticleHandler) Delete(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.articles.Delete(c.Request().Context(), id, uid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
