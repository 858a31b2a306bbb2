package reporting

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/nbslab/screening-reports/internal/platform/auth"
	"github.com/nbslab/screening-reports/internal/platform/db"
	"github.com/nbslab/screening-reports/internal/platform/httpapi"
	"github.com/nbslab/screening-reports/pkg/window"
)

// MeasureDefinition is an operator drill-down query. Windowed measures bind
// the report window as $1/$2; the rest run parameterless.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"-"`
	Windowed    bool   `json:"windowed"`
}

// MeasureReport holds the results of evaluating a measure across both
// partitions. Each result row carries the partition it came from.
type MeasureReport struct {
	MeasureID   string                   `json:"measureId"`
	MeasureName string                   `json:"measureName"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Results     []map[string]interface{} `json:"results"`
}

// PredefinedMeasures is the fixed list of drill-down measures. These exist
// for operators investigating anomalies in the dashboard numbers; the
// dashboard itself uses the domain report routes.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "samples-by-spectype",
		Name:        "Samples by Specimen Type",
		Description: "Sample and distinct lab-number counts per specimen-type code in the window",
		SQL: `SELECT spectype, COUNT(*) AS total, COUNT(DISTINCT lab_number) AS total_labno
		      FROM sample WHERE dtrecv BETWEEN $1 AND $2
		      GROUP BY spectype ORDER BY total DESC`,
		Windowed: true,
	},
	{
		ID:          "results-by-mnemonic",
		Name:        "Results by Mnemonic",
		Description: "Distinct lab numbers per result mnemonic in the window, rejections included",
		SQL: `SELECT r.mnemonic, COUNT(DISTINCT r.lab_number) AS total_labno
		      FROM sample_result r
		      JOIN sample s ON s.lab_number = r.lab_number
		      WHERE s.dtrecv BETWEEN $1 AND $2
		      GROUP BY r.mnemonic ORDER BY total_labno DESC`,
		Windowed: true,
	},
	{
		ID:          "top-submitters",
		Name:        "Top Submitters",
		Description: "Twenty highest-volume facilities by distinct lab numbers in the window",
		SQL: `SELECT s.submitter_id, f.name, f.county, COUNT(DISTINCT s.lab_number) AS total_labno
		      FROM sample s
		      JOIN submitter f ON f.submitter_id = s.submitter_id AND f.addresstype = '1'
		      WHERE s.dtrecv BETWEEN $1 AND $2
		      GROUP BY s.submitter_id, f.name, f.county
		      ORDER BY total_labno DESC LIMIT 20`,
		Windowed: true,
	},
	{
		ID:          "submitter-directory",
		Name:        "Submitter Directory Size",
		Description: "Registered report submitters per county",
		SQL: `SELECT county, COUNT(*) AS total FROM submitter
		      WHERE addresstype = '1' GROUP BY county ORDER BY total DESC`,
	},
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Handler serves the measure API.
type Handler struct {
	parts *db.Partitions
}

func NewHandler(parts *db.Partitions) *Handler {
	return &Handler{parts: parts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports", auth.RequireRole("admin"))
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	var args []interface{}
	if measure.Windowed {
		w, err := window.FromContext(c)
		if err != nil {
			return httpapi.InvalidWindowErr(err)
		}
		args = []interface{}{w.From, w.To}
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, args)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
	})
}

// executeSQL runs the measure on both partitions and concatenates the rows,
// tagging each with its source partition.
func (h *Handler) executeSQL(ctx context.Context, sql string, args []interface{}) ([]map[string]interface{}, error) {
	results := []map[string]interface{}{}

	err := h.parts.Each(func(part db.Partition, pool *pgxpool.Pool) error {
		rows, err := pool.Query(ctx, sql, args...)
		if err != nil {
			return httpapi.WrapDBError(err)
		}
		defer rows.Close()

		fieldDescs := rows.FieldDescriptions()
		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return httpapi.WrapDBError(err)
			}
			row := make(map[string]interface{}, len(fieldDescs)+1)
			for i, fd := range fieldDescs {
				row[string(fd.Name)] = values[i]
			}
			row["partition"] = string(part)
			results = append(results, row)
		}
		return httpapi.WrapDBError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
