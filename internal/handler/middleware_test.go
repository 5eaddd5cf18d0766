package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func internalEcho(key string) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler
	g := e.Group("/internal", InternalKey(key))
	g.POST("/ping", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	return e
}

func TestInternalKey(t *testing.T) {
	e := internalEcho("s3cret")

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"valid key", "s3cret", http.StatusNoContent},
		{"wrong key", "nope", http.StatusForbidden},
		{"missing key", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/internal/ping", nil)
			if tt.key != "" {
				req.Header.Set("X-Internal-Key", tt.key)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestInternalKeyRefusesWhenUnconfigured(t *testing.T) {
	// An empty configured key locks the internal surface entirely instead
	// of waving everyone through.
	e := internalEcho("")

	req := httptest.NewRequest(http.MethodPost, "/internal/ping", nil)
	req.Header.Set("X-Internal-Key", "")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestGetUserID(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if _, ok := GetUserID(c); ok {
		t.Error("unset context should report no user")
	}

	c.Set(contextKeyUserID, int64(42))
	id, ok := GetUserID(c)
	if !ok || id != 42 {
		t.Errorf("GetUserID() = %d, %v; want 42, true", id, ok)
	}
}
