package unsat

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/nbslab/screening-reports/internal/domain/classification"
	"github.com/nbslab/screening-reports/pkg/window"
)

// Service computes the unsatisfactory-sample rankings and comparisons from
// the flat repository rows. All grouping, filtering, and rate math happens
// here; the repository only unions partitions.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// summarize folds flat facility rows into client-facing summaries, resolving
// the province bucket and applying the optional province filter.
func (s *Service) summarize(rows []FacilityRow, province string) []FacilitySummary {
	out := make([]FacilitySummary, 0, len(rows))
	for _, row := range rows {
		group := classification.ResolveProvinceGroup(row.SubmitterID, row.County)
		if !classification.MatchesProvince(group, province) {
			continue
		}
		out = append(out, FacilitySummary{
			FacilityName:        row.FacilityName,
			Province:            group,
			TotalSamples:        row.TotalSamples,
			UnsatisfactoryCount: row.UnsatCount,
			UnsatRate:           Rate(row.UnsatCount, row.TotalSamples),
		})
	}
	return out
}

// TopByCount ranks facilities by unsatisfactory count descending within the
// window. province may be empty or "all" for no filter; limit <= 0 returns
// every facility.
func (s *Service) TopByCount(ctx context.Context, w window.Window, province string, limit int) ([]FacilitySummary, error) {
	codes, _ := classification.SpecimenCodes(classification.CategoryReceived)
	rows, err := s.repo.FacilityTotals(ctx, w, codes)
	if err != nil {
		return nil, err
	}

	out := s.summarize(rows, province)
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnsatisfactoryCount != out[j].UnsatisfactoryCount {
			return out[i].UnsatisfactoryCount > out[j].UnsatisfactoryCount
		}
		return out[i].FacilityName < out[j].FacilityName
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RateRanking ranks facilities by unsatisfactory rate descending. facility
// narrows the result to one named facility when non-empty.
func (s *Service) RateRanking(ctx context.Context, w window.Window, province, facility string) ([]FacilitySummary, error) {
	codes, _ := classification.SpecimenCodes(classification.CategoryReceived)
	rows, err := s.repo.FacilityTotals(ctx, w, codes)
	if err != nil {
		return nil, err
	}

	all := s.summarize(rows, province)
	out := make([]FacilitySummary, 0, len(all))
	for _, fs := range all {
		if facility != "" && fs.FacilityName != facility {
			continue
		}
		out = append(out, fs)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UnsatRate != out[j].UnsatRate {
			return out[i].UnsatRate > out[j].UnsatRate
		}
		return out[i].FacilityName < out[j].FacilityName
	})
	return out, nil
}

// ProvinceComparison counts distinct unsatisfactory lab numbers per province
// for two independent windows. Provinces present in either window get a row;
// an absent period counts zero.
func (s *Service) ProvinceComparison(ctx context.Context, w1, w2 window.Window) ([]ProvinceComparisonRow, error) {
	count1, err := s.distinctByProvince(ctx, w1)
	if err != nil {
		return nil, err
	}
	count2, err := s.distinctByProvince(ctx, w2)
	if err != nil {
		return nil, err
	}

	provinces := make(map[string]struct{}, len(count1)+len(count2))
	for p := range count1 {
		provinces[p] = struct{}{}
	}
	for p := range count2 {
		provinces[p] = struct{}{}
	}

	out := make([]ProvinceComparisonRow, 0, len(provinces))
	for p := range provinces {
		c1 := count1[p]
		c2 := count2[p]
		out = append(out, ProvinceComparisonRow{
			Province:     p,
			Period1Count: c1,
			Period2Count: c2,
			Delta:        PercentageDelta(c1, c2),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Province < out[j].Province })
	return out, nil
}

// distinctByProvince merges the flagged lab numbers from both partitions
// into per-province sets before counting, so a lab number rejected under
// several mnemonics, or present in both stores, contributes exactly once.
func (s *Service) distinctByProvince(ctx context.Context, w window.Window) (map[string]int64, error) {
	rows, err := s.repo.UnsatLabNumbers(ctx, w)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]map[string]struct{})
	display := make(map[string]string)
	for _, row := range rows {
		group := classification.ResolveProvinceGroup(row.SubmitterID, row.County)
		key := classification.NormalizeCounty(group)
		if seen[key] == nil {
			seen[key] = make(map[string]struct{})
			display[key] = group
		}
		seen[key][row.LabNumber] = struct{}{}
	}

	out := make(map[string]int64, len(seen))
	for key, labs := range seen {
		out[display[key]] = int64(len(labs))
	}
	return out, nil
}

// SummaryCards computes the overview card counters: received and screened
// sample counts plus distinct unsatisfactory lab numbers. The screened card
// uses the broader summary code set.
func (s *Service) SummaryCards(ctx context.Context, w window.Window) (SummaryCards, error) {
	received, _ := classification.SpecimenCodes(classification.CategoryReceived)
	screened, _ := classification.SpecimenCodes(classification.CategoryScreenedSummary)

	var cards SummaryCards
	var err error

	if cards.Received, err = s.repo.CountSamples(ctx, w, received); err != nil {
		return SummaryCards{}, err
	}
	if cards.Screened, err = s.repo.CountSamples(ctx, w, screened); err != nil {
		return SummaryCards{}, err
	}

	labs, err := s.repo.UnsatLabNumbers(ctx, w)
	if err != nil {
		return SummaryCards{}, err
	}
	distinct := make(map[string]struct{}, len(labs))
	for _, row := range labs {
		distinct[row.LabNumber] = struct{}{}
	}
	cards.Unsatisfactory = int64(len(distinct))

	return cards, nil
}

// Rate computes unsat/total*100 rounded to two decimals. A facility with no
// samples has rate zero, never NaN or Inf.
func Rate(unsat, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(unsat)/float64(total)*100*100) / 100
}

// PercentageDelta formats ((b-a)/a)*100 with a sign and two decimals. When
// the baseline a is zero the delta is undefined and "N/A" is returned; this
// is the single policy for every report.
func PercentageDelta(a, b int64) string {
	if a == 0 {
		return "N/A"
	}
	delta := (float64(b) - float64(a)) / float64(a) * 100
	return fmt.Sprintf("%+.2f%%", delta)
}
