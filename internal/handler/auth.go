package handler

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sayaka/teamboard/internal/domain"
	"github.com/sayaka/teamboard/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register wires the auth routes. The redirect/callback pairs are public;
// Me is mounted by the caller behind JWT.
func (h *AuthHandler) Register(g *echo.Group) {
	g.GET("/google", h.redirect(domain.AuthProviderGoogle))
	g.GET("/google/callback", h.callback(domain.AuthProviderGoogle))
	g.GET("/github", h.redirect(domain.AuthProviderGitHub))
	g.GET("/github/callback", h.callback(domain.AuthProviderGitHub))
	g.POST("/refresh", h.Refresh)
}

// redirect sends the user to the provider's OAuth consent page.
func (h *AuthHandler) redirect(p domain.AuthProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		state := generateState()
		c.SetCookie(&http.Cookie{
			Name:     "oauth_state",
			Value:    state,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   600,
		})

		url, err := h.auth.AuthURL(p, state)
		if err != nil {
			return err
		}
		return c.Redirect(http.StatusTemporaryRedirect, url)
	}
}

// callback handles the OAuth callback from the provider.
func (h *AuthHandler) callback(p domain.AuthProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := validateOAuthState(c); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}

		code := c.QueryParam("code")
		if code == "" {
			return fmt.Errorf("%w: missing code parameter", domain.ErrInvalidInput)
		}

		user, tokens, err := h.auth.Callback(c.Request().Context(), p, code)
		if err != nil {
			return err
		}

		return JSON(c, http.StatusOK, map[string]any{
			"user":   user,
			"tokens": tokens,
		})
	}
}

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	user, err := h.auth.GetUser(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, user)
}

// Refresh generates a new token pair from a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var body struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrInvalidInput)
	}
	if err := c.Validate(&body); err != nil {
		return err
	}

	tokens, err := h.auth.RefreshAccessToken(body.RefreshToken)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, tokens)
}

func generateState() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "fallback-state"
	}
	return base64.URLEncoding.EncodeToString(b)
}

func validateOAuthState(c echo.Context) error {
	cookie, err := c.Cookie("oauth_state")
	if err != nil {
		return fmt.Errorf("missing oauth_state cookie")
	}

	queryState := c.QueryParam("state")
	if queryState == "" || queryState != cookie.Value {
		return fmt.Errorf("state mismatch")
	}
	return nil
}
