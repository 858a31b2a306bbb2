package unsat

// FacilityRow is one flat aggregation row for a single facility within a
// window, as produced by one partition query and merged across partitions.
type FacilityRow struct {
	SubmitterID  string
	FacilityName string
	County       string
	TotalSamples int64
	UnsatCount   int64
}

// LabNumberRow is one distinct (facility, lab number) pair flagged
// unsatisfactory within a window. Lab numbers are kept, not counted, so the
// merge step can de-duplicate across partitions and rejection mnemonics.
type LabNumberRow struct {
	SubmitterID string
	County      string
	LabNumber   string
}

// FacilitySummary is the client-facing per-facility aggregate.
type FacilitySummary struct {
	FacilityName        string  `json:"facilityName"`
	Province            string  `json:"province"`
	TotalSamples        int64   `json:"totalSamples"`
	UnsatisfactoryCount int64   `json:"unsatisfactoryCount"`
	UnsatRate           float64 `json:"unsatRate"`
}

// ProvinceComparisonRow compares distinct unsatisfactory lab-number counts
// per province across two periods. Delta is a formatted percentage or "N/A"
// when the first period had no samples.
type ProvinceComparisonRow struct {
	Province     string `json:"province"`
	Period1Count int64  `json:"period1Count"`
	Period2Count int64  `json:"period2Count"`
	Delta        string `json:"delta"`
}

// SummaryCards holds the overview card counters.
type SummaryCards struct {
	Received       int64 `json:"received"`
	Screened       int64 `json:"screened"`
	Unsatisfactory int64 `json:"unsatisfactory"`
}
