package samples

import (
	"context"

	"github.com/nbslab/screening-reports/pkg/window"
)

// Repository reads sample volumes from the partitioned stores. Rows come back
// at facility grain; the service owns province resolution and regrouping.
type Repository interface {
	MonthlyFacilityCounts(ctx context.Context, w window.Window, specimenCodes []string) ([]MonthlyFacilityRow, error)
	CumulativeFacilityCounts(ctx context.Context, w window.Window, specimenCodes []string) ([]CumulativeFacilityRow, error)
}
