// Package classification holds the static lookup tables the reports are
// built on: which specimen-type codes belong to each reporting category,
// which result mnemonics mark a sample unsatisfactory, and how submitters
// map to the province buckets. Everything here is immutable, loaded once,
// and free of I/O.
package classification

import "strings"

// Category names a reporting specimen-code set.
type Category string

const (
	// CategoryReceived covers all specimen kinds counted as received.
	CategoryReceived Category = "received"
	// CategoryScreenedDaily is the narrow screened set used by the daily and
	// monthly screening reports.
	CategoryScreenedDaily Category = "screened_daily"
	// CategoryScreenedSummary is the broader screened set used by the
	// overview card counters. The two screened sets are intentionally kept
	// distinct; each report names the variant it uses.
	CategoryScreenedSummary Category = "screened_summary"
)

// LopezNearby is the synthetic province bucket aggregating the facilities
// around the Lopez screening center regardless of their literal county.
const LopezNearby = "LOPEZ_NEARBY"

// specimenCodes maps each category to its ordered specimen-type code set.
var specimenCodes = map[Category][]string{
	CategoryReceived:        {"1", "87", "20", "2", "3", "4", "5", "18"},
	CategoryScreenedDaily:   {"20", "1"},
	CategoryScreenedSummary: {"4", "3", "20", "2", "1", "87"},
}

// SpecimenCodes returns the specimen-type codes for a category, in their
// fixed order. The returned slice is a copy.
func SpecimenCodes(cat Category) ([]string, bool) {
	codes, ok := specimenCodes[cat]
	if !ok {
		return nil, false
	}
	out := make([]string, len(codes))
	copy(out, codes)
	return out, true
}

// ParseCategory maps the query-parameter spelling to a Category.
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "received":
		return CategoryReceived, true
	case "screened", "screened_daily":
		return CategoryScreenedDaily, true
	case "screened_summary":
		return CategoryScreenedSummary, true
	}
	return "", false
}

// unsatisfactoryMnemonics is the full union of rejection codes observed in
// the result/audit trail. Membership in this set is what makes a sample
// unsatisfactory.
var unsatisfactoryMnemonics = map[string]struct{}{
	"DE": {}, "INS": {}, "E100": {}, "E101": {}, "E102": {}, "E103": {},
	"E107": {}, "E108": {}, "E109": {}, "UD": {}, "ODC": {}, "NDE": {}, "NE": {},
}

// IsUnsatisfactoryMnemonic reports whether a result mnemonic marks the
// sample unsatisfactory. Comparison is case-insensitive and ignores the
// trailing padding fixed-width result columns carry.
func IsUnsatisfactoryMnemonic(code string) bool {
	_, ok := unsatisfactoryMnemonics[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// UnsatisfactoryMnemonics returns the rejection-code set as a sorted-input
// slice suitable for SQL array binding.
func UnsatisfactoryMnemonics() []string {
	return []string{
		"DE", "INS", "E100", "E101", "E102", "E103",
		"E107", "E108", "E109", "UD", "ODC", "NDE", "NE",
	}
}

// ReportingProvinces is the fixed set of provinces the cumulative reports
// break out, in display order. LopezNearby is appended as a synthetic bucket
// by the reports that carry it.
var ReportingProvinces = []string{"QUEZON", "LAGUNA", "BATANGAS", "CAVITE", "RIZAL"}

// lopezNearbySubmitters is the fixed set of submitter IDs reassigned to the
// LopezNearby bucket no matter which county their facility record carries.
var lopezNearbySubmitters = map[string]struct{}{
	"40201": {}, "40202": {}, "40203": {}, "40204": {}, "40205": {},
	"40206": {}, "40207": {}, "40208": {}, "40209": {}, "40210": {},
	"40211": {}, "40212": {}, "40213": {}, "40214": {}, "40215": {},
	"40216": {}, "40217": {}, "40218": {}, "40219": {}, "40220": {},
	"40221": {}, "40222": {}, "40223": {}, "40224": {}, "40225": {},
	"40226": {}, "40227": {}, "40228": {}, "40229": {}, "40230": {},
	"40231": {}, "40232": {}, "40233": {}, "40234": {}, "40235": {},
	"40236": {}, "40237": {}, "40238": {}, "40239": {}, "40240": {},
	"40241": {}, "40242": {}, "40243": {}, "40244": {}, "40245": {},
	"40246": {}, "40247": {}, "40248": {}, "40249": {}, "40250": {},
	"40251": {}, "40252": {},
}

// IsLopezNearbySubmitter reports membership in the fixed nearby set.
func IsLopezNearbySubmitter(submitterID string) bool {
	_, ok := lopezNearbySubmitters[strings.TrimSpace(submitterID)]
	return ok
}

// LopezNearbySubmitterCount is exposed for sanity checks in reports.
func LopezNearbySubmitterCount() int { return len(lopezNearbySubmitters) }

// ResolveProvinceGroup returns the province bucket for a submitter. The
// LopezNearby override always wins, even when the county column is empty or
// disagrees. Otherwise the trimmed county is returned with its original
// casing preserved for display.
func ResolveProvinceGroup(submitterID, rawCounty string) string {
	if IsLopezNearbySubmitter(submitterID) {
		return LopezNearby
	}
	return strings.TrimSpace(rawCounty)
}

// NormalizeCounty produces the comparison key for a county value: trimmed
// and upper-cased. Fixed-width source columns pad county names with spaces;
// grouping on the raw value would split one province into several rows.
func NormalizeCounty(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// MatchesProvince reports whether a county value matches a requested
// province filter. The synthetic bucket matches only its literal sentinel;
// real provinces match on case-insensitive prefix, which is how the stored
// county text has always been filtered.
func MatchesProvince(group, filter string) bool {
	f := NormalizeCounty(filter)
	if f == "" || f == "ALL" {
		return true
	}
	g := NormalizeCounty(group)
	if f == LopezNearby || g == LopezNearby {
		return g == f
	}
	return strings.HasPrefix(g, f)
}
