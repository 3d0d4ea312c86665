package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRequestTimeout_CompletesWithinDeadline(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil), httptest.NewRecorder())

	called := false
	h := RequestTimeout(5 * time.Second)(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called")
	}
}

func TestRequestTimeout_ReturnsTimeoutOnExpiry(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/monitoring", nil), httptest.NewRecorder())

	released := make(chan struct{})
	h := RequestTimeout(20 * time.Millisecond)(func(c echo.Context) error {
		defer close(released)
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})

	err := h(c)
	if statusCode(err) != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %v", err)
	}
	<-released
}

func TestRequestTimeout_ExemptPrefix(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/api/v1/broadcast/send", nil), httptest.NewRecorder())

	h := RequestTimeout(time.Millisecond, "/api/v1/broadcast/send")(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			t.Error("exempt path should not get a deadline")
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestTimeout_PropagatesHandlerError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	h := RequestTimeout(time.Second)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	if err := h(c); statusCode(err) != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
