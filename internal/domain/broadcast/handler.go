package broadcast

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/anc/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/broadcast", auth.RequireRole(auth.RoleMidwife))
	g.GET("/templates", h.ListTemplates)
	g.GET("/preview", h.Preview)
	g.POST("/send", h.Send)
}

type sendRequest struct {
	Group    string `json:"group"`
	Template string `json:"template"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownGroup):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoSender):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) ListTemplates(c echo.Context) error {
	templates := make(map[Group]string, len(Groups))
	for _, g := range Groups {
		templates[g] = h.svc.Template(g, "")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"templates": templates,
		"gateway":   h.svc.CanSend(),
	})
}

func (h *Handler) Preview(c echo.Context) error {
	group, err := ParseGroup(c.QueryParam("group"))
	if err != nil {
		return httpError(err)
	}
	items, err := h.svc.Preview(c.Request().Context(), group, c.QueryParam("template"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"group": group,
		"total": len(items),
		"data":  items,
	})
}

func (h *Handler) Send(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	group, err := ParseGroup(req.Group)
	if err != nil {
		return httpError(err)
	}
	res, err := h.svc.Send(c.Request().Context(), group, req.Template)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
