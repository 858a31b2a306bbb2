package unsat

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nbslab/screening-reports/internal/domain/classification"
	"github.com/nbslab/screening-reports/internal/platform/db"
	"github.com/nbslab/screening-reports/internal/platform/httpapi"
	"github.com/nbslab/screening-reports/pkg/window"
)

type repoPG struct{ parts *db.Partitions }

// NewRepoPG builds the pgx-backed repository over the partition pair. Every
// query runs through pool.Query with a deferred rows.Close, so the pooled
// connection is returned on every exit path, errors included.
func NewRepoPG(parts *db.Partitions) Repository {
	return &repoPG{parts: parts}
}

// facilityLabNumbersSQL pulls one row per (facility, lab number) with an
// unsatisfactory flag instead of aggregating in SQL. A lab number resolved in
// one partition can still sit in the other, so COUNT(DISTINCT) per partition
// would count it twice; the merge de-duplicates across both stores before
// counting. Only address-type '1' submitter records are valid report
// submitters.
const facilityLabNumbersSQL = `
	SELECT DISTINCT s.submitter_id,
	       f.name,
	       f.county,
	       s.lab_number,
	       (r.lab_number IS NOT NULL) AS unsat
	FROM sample s
	JOIN submitter f
	  ON f.submitter_id = s.submitter_id
	 AND f.addresstype = '1'
	LEFT JOIN sample_result r
	  ON r.lab_number = s.lab_number
	 AND r.mnemonic = ANY($3)
	WHERE s.dtrecv BETWEEN $1 AND $2
	  AND s.spectype = ANY($4)`

type facilityLabRow struct {
	SubmitterID  string
	FacilityName string
	County       string
	LabNumber    string
	Unsat        bool
}

type facilityAccum struct {
	row  FacilityRow
	labs map[string]bool
}

// facilityMerger folds per-partition lab-number rows into one FacilityRow per
// submitter, counting each lab number once no matter how many partitions or
// rejection mnemonics it appears under.
type facilityMerger struct {
	byID  map[string]*facilityAccum
	order []string
}

func newFacilityMerger() *facilityMerger {
	return &facilityMerger{byID: make(map[string]*facilityAccum)}
}

func (m *facilityMerger) add(r facilityLabRow) {
	acc, ok := m.byID[r.SubmitterID]
	if !ok {
		acc = &facilityAccum{
			row: FacilityRow{
				SubmitterID:  r.SubmitterID,
				FacilityName: r.FacilityName,
				County:       r.County,
			},
			labs: make(map[string]bool),
		}
		m.byID[r.SubmitterID] = acc
		m.order = append(m.order, r.SubmitterID)
	}
	// A lab number flagged in either partition stays flagged.
	acc.labs[r.LabNumber] = acc.labs[r.LabNumber] || r.Unsat
}

func (m *facilityMerger) rows() []FacilityRow {
	out := make([]FacilityRow, 0, len(m.order))
	for _, id := range m.order {
		acc := m.byID[id]
		acc.row.TotalSamples = int64(len(acc.labs))
		acc.row.UnsatCount = 0
		for _, unsat := range acc.labs {
			if unsat {
				acc.row.UnsatCount++
			}
		}
		out = append(out, acc.row)
	}
	return out
}

func (r *repoPG) FacilityTotals(ctx context.Context, w window.Window, specimenCodes []string) ([]FacilityRow, error) {
	merger := newFacilityMerger()

	err := r.parts.Each(func(_ db.Partition, pool *pgxpool.Pool) error {
		rows, err := pool.Query(ctx, facilityLabNumbersSQL,
			w.From, w.To, classification.UnsatisfactoryMnemonics(), specimenCodes)
		if err != nil {
			return httpapi.WrapDBError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var lr facilityLabRow
			if err := rows.Scan(&lr.SubmitterID, &lr.FacilityName, &lr.County, &lr.LabNumber, &lr.Unsat); err != nil {
				return httpapi.WrapDBError(err)
			}
			merger.add(lr)
		}
		return httpapi.WrapDBError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return merger.rows(), nil
}

// unsatLabNumbersSQL pulls the distinct flagged lab numbers rather than
// counts; the service de-duplicates across partitions before counting, so a
// lab number present in both stores contributes one.
const unsatLabNumbersSQL = `
	SELECT DISTINCT s.submitter_id, f.county, s.lab_number
	FROM sample s
	JOIN submitter f
	  ON f.submitter_id = s.submitter_id
	 AND f.addresstype = '1'
	JOIN sample_result r
	  ON r.lab_number = s.lab_number
	WHERE s.dtrecv BETWEEN $1 AND $2
	  AND r.mnemonic = ANY($3)`

func (r *repoPG) UnsatLabNumbers(ctx context.Context, w window.Window) ([]LabNumberRow, error) {
	var out []LabNumberRow

	err := r.parts.Each(func(_ db.Partition, pool *pgxpool.Pool) error {
		rows, err := pool.Query(ctx, unsatLabNumbersSQL,
			w.From, w.To, classification.UnsatisfactoryMnemonics())
		if err != nil {
			return httpapi.WrapDBError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var lr LabNumberRow
			if err := rows.Scan(&lr.SubmitterID, &lr.County, &lr.LabNumber); err != nil {
				return httpapi.WrapDBError(err)
			}
			out = append(out, lr)
		}
		return httpapi.WrapDBError(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// countSamplesSQL pulls the distinct lab numbers so the cross-partition count
// can de-duplicate, same as FacilityTotals.
const countSamplesSQL = `
	SELECT DISTINCT s.lab_number
	FROM sample s
	JOIN submitter f
	  ON f.submitter_id = s.submitter_id
	 AND f.addresstype = '1'
	WHERE s.dtrecv BETWEEN $1 AND $2
	  AND s.spectype = ANY($3)`

func (r *repoPG) CountSamples(ctx context.Context, w window.Window, specimenCodes []string) (int64, error) {
	seen := make(map[string]struct{})
	err := r.parts.Each(func(_ db.Partition, pool *pgxpool.Pool) error {
		rows, err := pool.Query(ctx, countSamplesSQL, w.From, w.To, specimenCodes)
		if err != nil {
			return httpapi.WrapDBError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var lab string
			if err := rows.Scan(&lab); err != nil {
				return httpapi.WrapDBError(err)
			}
			seen[lab] = struct{}{}
		}
		return httpapi.WrapDBError(rows.Err())
	})
	if err != nil {
		return 0, err
	}
	return int64(len(seen)), nil
}
