package activity

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/anc/internal/platform/auth"
	"github.com/ehr/anc/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/activity", auth.RequireRole(auth.RoleAdmin))
	g.GET("", h.List)
}

// List serves GET /activity?user_id=&action=&resource=&since=YYYY-MM-DD.
func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := Filter{
		UserID:   c.QueryParam("user_id"),
		Action:   c.QueryParam("action"),
		Resource: c.QueryParam("resource"),
	}
	if v := c.QueryParam("since"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be YYYY-MM-DD")
		}
		f.Since = &t
	}

	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, ErrInvalidFilter) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
