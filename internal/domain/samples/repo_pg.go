package samples

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nbslab/screening-reports/internal/platform/db"
	"github.com/nbslab/screening-reports/internal/platform/httpapi"
	"github.com/nbslab/screening-reports/pkg/window"
)

type repoPG struct{ parts *db.Partitions }

// NewRepoPG builds the pgx-backed repository over the partition pair. As in
// the unsat repository, every query goes through pool.Query with a deferred
// rows.Close so the pooled connection is returned on every exit path.
func NewRepoPG(parts *db.Partitions) Repository {
	return &repoPG{parts: parts}
}

const monthlyFacilitySQL = `
	SELECT EXTRACT(YEAR FROM s.dtrecv)::int  AS yr,
	       EXTRACT(MONTH FROM s.dtrecv)::int AS mo,
	       s.submitter_id,
	       f.county,
	       COUNT(*)                     AS total_samples,
	       COUNT(DISTINCT s.lab_number) AS total_labno
	FROM sample s
	JOIN submitter f
	  ON f.submitter_id = s.submitter_id
	 AND f.addresstype = '1'
	WHERE s.dtrecv BETWEEN $1 AND $2
	  AND s.spectype = ANY($3)
	GROUP BY yr, mo, s.submitter_id, f.county`

func (r *repoPG) MonthlyFacilityCounts(ctx context.Context, w window.Window, specimenCodes []string) ([]MonthlyFacilityRow, error) {
	var out []MonthlyFacilityRow

	err := r.parts.Each(func(_ db.Partition, pool *pgxpool.Pool) error {
		rows, err := pool.Query(ctx, monthlyFacilitySQL, w.From, w.To, specimenCodes)
		if err != nil {
			return httpapi.WrapDBError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var mr MonthlyFacilityRow
			if err := rows.Scan(&mr.Year, &mr.Month, &mr.SubmitterID, &mr.County, &mr.TotalSamples, &mr.TotalLabNumbers); err != nil {
				return httpapi.WrapDBError(err)
			}
			out = append(out, mr)
		}
		return httpapi.WrapDBError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

const cumulativeFacilitySQL = `
	SELECT s.submitter_id,
	       f.county,
	       COUNT(*)                     AS total_samples,
	       COUNT(DISTINCT s.lab_number) AS total_labno
	FROM sample s
	JOIN submitter f
	  ON f.submitter_id = s.submitter_id
	 AND f.addresstype = '1'
	WHERE s.dtrecv BETWEEN $1 AND $2
	  AND s.spectype = ANY($3)
	GROUP BY s.submitter_id, f.county`

func (r *repoPG) CumulativeFacilityCounts(ctx context.Context, w window.Window, specimenCodes []string) ([]CumulativeFacilityRow, error) {
	var out []CumulativeFacilityRow

	err := r.parts.Each(func(_ db.Partition, pool *pgxpool.Pool) error {
		rows, err := pool.Query(ctx, cumulativeFacilitySQL, w.From, w.To, specimenCodes)
		if err != nil {
			return httpapi.WrapDBError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var cr CumulativeFacilityRow
			if err := rows.Scan(&cr.SubmitterID, &cr.County, &cr.TotalSamples, &cr.TotalLabNumbers); err != nil {
				return httpapi.WrapDBError(err)
			}
			out = append(out, cr)
		}
		return httpapi.WrapDBError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
