package monitoring

import (
	"errors"
	"net/http"
	"strconv"

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
	g := api.Group("/monitoring", auth.RequireRole(auth.RoleMidwife))
	g.GET("", h.ListRows)
	g.GET("/stats", h.GetStats)
	g.GET("/map", h.GetMap)
	g.GET("/summary", h.GetSummary)
	g.GET("/report", h.ExportReport)
}

// filterFromQuery reads ?year=&quarter=&sub_district=&include_delivered=.
func filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if v := c.QueryParam("year"); v != "" && v != "ALL" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
		f.Year = n
	}
	if v := c.QueryParam("quarter"); v != "" && v != "ALL" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid quarter")
		}
		f.Quarter = n
	}
	if v := c.QueryParam("sub_district"); v != "ALL" {
		f.SubDistrict = v
	}
	f.IncludeDelivered = c.QueryParam("include_delivered") == "true"
	if err := f.Validate(); err != nil {
		return f, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return f, nil
}

func httpError(err error) error {
	if errors.Is(err, ErrInvalidFilter) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) ListRows(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	rows, err := h.svc.Rows(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"filter": f,
		"total":  len(rows),
		"data":   rows,
	})
}

func (h *Handler) GetStats(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.Stats(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetMap(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	markers, err := h.svc.Markers(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, markers)
}

func (h *Handler) GetSummary(c echo.Context) error {
	sum, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) ExportReport(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return err
	}
	data, err := h.svc.Report(c.Request().Context(), f)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+ReportFilename(f)+`"`)
	return c.Blob(http.StatusOK, xlsxMIME, data)
}
