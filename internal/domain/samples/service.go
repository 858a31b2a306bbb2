package samples

import (
	"context"
	"sort"
	"strings"

	"github.com/nbslab/screening-reports/internal/domain/classification"
	"github.com/nbslab/screening-reports/internal/platform/httpapi"
	"github.com/nbslab/screening-reports/pkg/window"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Monthly returns one row per calendar (year, month) present in the window
// for the category's specimen codes, restricted to the requested province
// group. The specimen-code set is returned alongside so handlers can echo it
// back for traceability.
func (s *Service) Monthly(ctx context.Context, w window.Window, cat classification.Category, province string) ([]MonthlyCount, []string, error) {
	codes, ok := classification.SpecimenCodes(cat)
	if !ok {
		return nil, nil, httpapi.InvalidWindow("unknown report category: " + string(cat))
	}

	rows, err := s.repo.MonthlyFacilityCounts(ctx, w, codes)
	if err != nil {
		return nil, nil, err
	}

	type ym struct{ year, month int }
	merged := make(map[ym]*MonthlyCount)
	for _, row := range rows {
		group := classification.ResolveProvinceGroup(row.SubmitterID, row.County)
		if !classification.MatchesProvince(group, province) {
			continue
		}
		key := ym{row.Year, row.Month}
		mc, ok := merged[key]
		if !ok {
			mc = &MonthlyCount{Month: row.Month, Year: row.Year}
			merged[key] = mc
		}
		mc.TotalSamples += row.TotalSamples
		mc.TotalLabNumbers += row.TotalLabNumbers
	}

	out := make([]MonthlyCount, 0, len(merged))
	for _, mc := range merged {
		out = append(out, *mc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, codes, nil
}

// CumulativeAllProvinces buckets the window's received samples into the five
// reporting provinces plus the nearby override bucket. Every bucket appears
// in the result even when empty, in the fixed reporting order.
func (s *Service) CumulativeAllProvinces(ctx context.Context, w window.Window) ([]ProvinceCumulative, CumulativeTotals, error) {
	codes, _ := classification.SpecimenCodes(classification.CategoryReceived)

	rows, err := s.repo.CumulativeFacilityCounts(ctx, w, codes)
	if err != nil {
		return nil, CumulativeTotals{}, err
	}

	buckets := make(map[string]*ProvinceCumulative)
	order := append(append([]string{}, classification.ReportingProvinces...), classification.LopezNearby)
	for _, p := range order {
		buckets[p] = &ProvinceCumulative{Province: p}
	}

	var totals CumulativeTotals
	for _, row := range rows {
		group := classification.ResolveProvinceGroup(row.SubmitterID, row.County)
		bucket := matchBucket(buckets, group)
		if bucket == nil {
			continue
		}
		bucket.TotalSamples += row.TotalSamples
		bucket.TotalLabNumbers += row.TotalLabNumbers
		totals.TotalRecords++
		totals.TotalSamples += row.TotalSamples
		totals.TotalLabNo += row.TotalLabNumbers
	}

	out := make([]ProvinceCumulative, 0, len(order))
	for _, p := range order {
		out = append(out, *buckets[p])
	}
	return out, totals, nil
}

// matchBucket maps a resolved province group onto one of the fixed reporting
// buckets. The override bucket matches only by its sentinel; province buckets
// prefix-match against the stored county text, which can carry suffixes such
// as district annotations.
func matchBucket(buckets map[string]*ProvinceCumulative, group string) *ProvinceCumulative {
	if group == classification.LopezNearby {
		return buckets[classification.LopezNearby]
	}
	upper := strings.ToUpper(group)
	for name, b := range buckets {
		if name == classification.LopezNearby {
			continue
		}
		if strings.HasPrefix(upper, name) {
			return b
		}
	}
	return nil
}
