package unsat

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/nbslab/screening-reports/internal/platform/httpapi"
	"github.com/nbslab/screening-reports/pkg/window"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/unsat")
	g.GET("/top-unsatisfactory", h.TopUnsatisfactory)
	g.GET("/unsat-rate", h.UnsatRate)
	g.GET("/unsat-province", h.UnsatProvince)
	g.GET("/summary-cards", h.SummaryCards)
}

func (h *Handler) TopUnsatisfactory(c echo.Context) error {
	w, err := window.FromContext(c)
	if err != nil {
		return httpapi.InvalidWindowErr(err)
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return httpapi.InvalidWindow("limit must be a non-negative integer")
		}
	}

	summaries, err := h.svc.TopByCount(c.Request().Context(), w, c.QueryParam("province"), limit)
	if err != nil {
		return err
	}
	return httpapi.OKList(c, summaries, len(summaries))
}

func (h *Handler) UnsatRate(c echo.Context) error {
	w, err := window.FromContext(c)
	if err != nil {
		return httpapi.InvalidWindowErr(err)
	}

	summaries, err := h.svc.RateRanking(c.Request().Context(), w,
		c.QueryParam("province"), c.QueryParam("facility_name"))
	if err != nil {
		return err
	}
	return httpapi.OKList(c, summaries, len(summaries))
}

func (h *Handler) UnsatProvince(c echo.Context) error {
	w1, err := window.FromContextNamed(c, "dateFrom1", "dateTo1")
	if err != nil {
		return httpapi.InvalidWindowErr(err)
	}
	w2, err := window.FromContextNamed(c, "dateFrom2", "dateTo2")
	if err != nil {
		return httpapi.InvalidWindowErr(err)
	}

	rows, err := h.svc.ProvinceComparison(c.Request().Context(), w1, w2)
	if err != nil {
		return err
	}
	return httpapi.OKRows(c, rows, len(rows))
}

func (h *Handler) SummaryCards(c echo.Context) error {
	w, err := window.FromContext(c)
	if err != nil {
		return httpapi.InvalidWindowErr(err)
	}

	cards, err := h.svc.SummaryCards(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return httpapi.OK(c, cards)
}
