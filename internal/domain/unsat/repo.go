package unsat

import (
	"context"

	"github.com/nbslab/screening-reports/pkg/window"
)

// Repository reads aggregation rows from the sample store. Implementations
// union the archive and master partitions; callers never see the split.
type Repository interface {
	// FacilityTotals returns, per facility, the total samples matching the
	// given specimen-type codes and the unsatisfactory subset, within the
	// window. Only address-type "1" submitters are counted.
	FacilityTotals(ctx context.Context, w window.Window, specimenCodes []string) ([]FacilityRow, error)

	// UnsatLabNumbers returns the distinct lab numbers flagged by any
	// rejection mnemonic within the window, with their facility and county.
	UnsatLabNumbers(ctx context.Context, w window.Window) ([]LabNumberRow, error)

	// CountSamples returns the number of samples matching the specimen-type
	// codes within the window.
	CountSamples(ctx context.Context, w window.Window, specimenCodes []string) (int64, error)
}
