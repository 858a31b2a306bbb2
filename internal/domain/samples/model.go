package samples

// MonthlyFacilityRow is the repository-level grain for the monthly reports:
// one row per (year, month, facility) so the service can apply the province
// resolution rule before collapsing to calendar months.
type MonthlyFacilityRow struct {
	Year            int
	Month           int
	SubmitterID     string
	County          string
	TotalSamples    int64
	TotalLabNumbers int64
}

// CumulativeFacilityRow carries per-facility totals for the whole window,
// without the month split.
type CumulativeFacilityRow struct {
	SubmitterID     string
	County          string
	TotalSamples    int64
	TotalLabNumbers int64
}

// MonthlyCount is a client-facing row: one per (year, month) present in the
// window after province filtering.
type MonthlyCount struct {
	Month           int   `json:"month"`
	Year            int   `json:"year"`
	TotalSamples    int64 `json:"totalSamples"`
	TotalLabNumbers int64 `json:"totalLabNumbers"`
}

// ProvinceCumulative is one bucket of the all-province cumulative report.
type ProvinceCumulative struct {
	Province        string `json:"province"`
	TotalSamples    int64  `json:"totalSamples"`
	TotalLabNumbers int64  `json:"totalLabNumbers"`
}

// CumulativeTotals summarizes the all-province report.
type CumulativeTotals struct {
	TotalRecords int   `json:"totalRecords"`
	TotalSamples int64 `json:"totalSamples"`
	TotalLabNo   int64 `json:"totalLabNo"`
}
