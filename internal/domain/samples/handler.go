package samples

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nbslab/screening-reports/internal/domain/classification"
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
	recv := api.Group("/sample-receive")
	recv.GET("/monthly-labno-count", h.monthly(classification.CategoryReceived))
	recv.GET("/cumulative-all-province", h.CumulativeAllProvince)

	scr := api.Group("/sample-screened")
	scr.GET("/monthly-labno-count", h.monthly(classification.CategoryScreenedDaily))
}

// monthlyResponse echoes the specimen-code set used for the query so report
// consumers can trace which sample kinds a number covers.
type monthlyResponse struct {
	Success   bool           `json:"success"`
	Data      []MonthlyCount `json:"data"`
	Spectypes []string       `json:"spectypes"`
	RowCount  int            `json:"rowCount"`
}

func (h *Handler) monthly(cat classification.Category) echo.HandlerFunc {
	return func(c echo.Context) error {
		w, err := window.FromContext(c)
		if err != nil {
			return httpapi.InvalidWindowErr(err)
		}

		counts, codes, err := h.svc.Monthly(c.Request().Context(), w, cat, c.QueryParam("province"))
		if err != nil {
			return err
		}
		if counts == nil {
			counts = []MonthlyCount{}
		}
		return c.JSON(http.StatusOK, monthlyResponse{
			Success:   true,
			Data:      counts,
			Spectypes: codes,
			RowCount:  len(counts),
		})
	}
}

type cumulativeResponse struct {
	Success bool                 `json:"success"`
	Data    []ProvinceCumulative `json:"data"`
	Totals  CumulativeTotals     `json:"totals"`
}

func (h *Handler) CumulativeAllProvince(c echo.Context) error {
	w, err := window.FromContext(c)
	if err != nil {
		return httpapi.InvalidWindowErr(err)
	}

	buckets, totals, err := h.svc.CumulativeAllProvinces(c.Request().Context(), w)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cumulativeResponse{
		Success: true,
		Data:    buckets,
		Totals:  totals,
	})
}
