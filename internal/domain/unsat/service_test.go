package unsat

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nbslab/screening-reports/internal/platform/httpapi"
	"github.com/nbslab/screening-reports/pkg/window"
)

// -- Mock Repository --

type mockRepo struct {
	facilities []FacilityRow
	labNumbers map[string][]LabNumberRow // keyed by window string
	counts     map[string]int64          // keyed by first specimen code
	err        error
	calls      int
}

func (m *mockRepo) FacilityTotals(_ context.Context, _ window.Window, _ []string) ([]FacilityRow, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.facilities, nil
}

func (m *mockRepo) UnsatLabNumbers(_ context.Context, w window.Window) ([]LabNumberRow, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.labNumbers[w.String()], nil
}

func (m *mockRepo) CountSamples(_ context.Context, _ window.Window, codes []string) (int64, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[codes[0]], nil
}

var errTest = errors.New("test failure")

func mustWindow(t *testing.T, from, to string) window.Window {
	t.Helper()
	w, err := window.New(from, to)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	return w
}

func TestTopByCount_SortedDescending(t *testing.T) {
	repo := &mockRepo{facilities: []FacilityRow{
		{SubmitterID: "10001", FacilityName: "Alpha RHU", County: "BATANGAS", TotalSamples: 50, UnsatCount: 2},
		{SubmitterID: "10002", FacilityName: "Bravo DH", County: "QUEZON", TotalSamples: 80, UnsatCount: 9},
		{SubmitterID: "10003", FacilityName: "Charlie MH", County: "LAGUNA", TotalSamples: 30, UnsatCount: 5},
	}}
	svc := NewService(repo)

	out, err := svc.TopByCount(context.Background(), mustWindow(t, "2024-01-01", "2024-01-31"), "all", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].UnsatisfactoryCount > out[i-1].UnsatisfactoryCount {
			t.Errorf("rows not sorted by count desc at %d", i)
		}
	}
	for _, fs := range out {
		if fs.UnsatisfactoryCount > fs.TotalSamples {
			t.Errorf("%s: unsat %d exceeds total %d", fs.FacilityName, fs.UnsatisfactoryCount, fs.TotalSamples)
		}
	}
}

func TestTopByCount_TiesBrokenByName(t *testing.T) {
	repo := &mockRepo{facilities: []FacilityRow{
		{SubmitterID: "10002", FacilityName: "Zulu RHU", County: "QUEZON", TotalSamples: 10, UnsatCount: 3},
		{SubmitterID: "10001", FacilityName: "Alpha RHU", County: "QUEZON", TotalSamples: 10, UnsatCount: 3},
	}}
	svc := NewService(repo)

	out, _ := svc.TopByCount(context.Background(), mustWindow(t, "2024-01-01", "2024-01-31"), "all", 0)
	if out[0].FacilityName != "Alpha RHU" {
		t.Errorf("expected deterministic tie-break by name, got %s first", out[0].FacilityName)
	}
}

func TestTopByCount_Limit(t *testing.T) {
	repo := &mockRepo{facilities: []FacilityRow{
		{SubmitterID: "1", FacilityName: "A", County: "QUEZON", TotalSamples: 10, UnsatCount: 1},
		{SubmitterID: "2", FacilityName: "B", County: "QUEZON", TotalSamples: 10, UnsatCount: 2},
		{SubmitterID: "3", FacilityName: "C", County: "QUEZON", TotalSamples: 10, UnsatCount: 3},
	}}
	svc := NewService(repo)

	out, _ := svc.TopByCount(context.Background(), mustWindow(t, "2024-01-01", "2024-01-31"), "all", 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].FacilityName != "C" {
		t.Errorf("expected C first, got %s", out[0].FacilityName)
	}
}

func TestTopByCount_ProvinceFilterIsSubset(t *testing.T) {
	repo := &mockRepo{facilities: []FacilityRow{
		{SubmitterID: "10001", FacilityName: "Alpha RHU", County: "BATANGAS", TotalSamples: 50, UnsatCount: 2},
		{SubmitterID: "10002", FacilityName: "Bravo DH", County: "QUEZON", TotalSamples: 80, UnsatCount: 9},
	}}
	svc := NewService(repo)
	w := mustWindow(t, "2024-01-01", "2024-01-31")

	all, _ := svc.TopByCount(context.Background(), w, "all", 0)
	filtered, _ := svc.TopByCount(context.Background(), w, "BATANGAS", 0)

	if len(filtered) > len(all) {
		t.Fatal("filtered set larger than unfiltered")
	}
	for _, fs := range filtered {
		found := false
		for _, af := range all {
			if reflect.DeepEqual(fs, af) {
				found = true
			}
		}
		if !found {
			t.Errorf("filtered row %v not present in unfiltered result", fs)
		}
	}
}

func TestTopByCount_LopezOverrideAppliesInFilter(t *testing.T) {
	// Submitter in the nearby set sits in QUEZON per its facility record but
	// must land in the synthetic bucket, in every report.
	repo := &mockRepo{facilities: []FacilityRow{
		{SubmitterID: "40205", FacilityName: "Lopez Area RHU", County: "QUEZON", TotalSamples: 20, UnsatCount: 4},
	}}
	svc := NewService(repo)
	w := mustWindow(t, "2024-01-01", "2024-01-31")

	quezon, _ := svc.TopByCount(context.Background(), w, "QUEZON", 0)
	if len(quezon) != 0 {
		t.Error("nearby-set facility must not appear under its literal county")
	}

	nearby, _ := svc.TopByCount(context.Background(), w, "LOPEZ_NEARBY", 0)
	if len(nearby) != 1 || nearby[0].Province != "LOPEZ_NEARBY" {
		t.Errorf("expected facility under LOPEZ_NEARBY, got %v", nearby)
	}
}

func TestRateRanking_ScenarioAndGuard(t *testing.T) {
	repo := &mockRepo{facilities: []FacilityRow{
		{SubmitterID: "10001", FacilityName: "Alpha RHU", County: "BATANGAS", TotalSamples: 100, UnsatCount: 5},
		{SubmitterID: "10002", FacilityName: "Empty Clinic", County: "BATANGAS", TotalSamples: 0, UnsatCount: 0},
	}}
	svc := NewService(repo)

	out, err := svc.RateRanking(context.Background(), mustWindow(t, "2024-01-01", "2024-01-31"), "all", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var alpha, empty *FacilitySummary
	for i := range out {
		switch out[i].FacilityName {
		case "Alpha RHU":
			alpha = &out[i]
		case "Empty Clinic":
			empty = &out[i]
		}
	}
	if alpha == nil || alpha.TotalSamples != 100 || alpha.UnsatisfactoryCount != 5 || alpha.UnsatRate != 5.00 {
		t.Errorf("unexpected Alpha summary: %+v", alpha)
	}
	if empty == nil || empty.UnsatRate != 0 {
		t.Errorf("zero-total facility must have rate 0, got %+v", empty)
	}
}

func TestRateRanking_FacilityFilter(t *testing.T) {
	repo := &mockRepo{facilities: []FacilityRow{
		{SubmitterID: "10001", FacilityName: "Alpha RHU", County: "BATANGAS", TotalSamples: 100, UnsatCount: 5},
		{SubmitterID: "10002", FacilityName: "Bravo DH", County: "BATANGAS", TotalSamples: 60, UnsatCount: 9},
	}}
	svc := NewService(repo)

	out, _ := svc.RateRanking(context.Background(), mustWindow(t, "2024-01-01", "2024-01-31"), "all", "Bravo DH")
	if len(out) != 1 || out[0].FacilityName != "Bravo DH" {
		t.Errorf("expected only Bravo DH, got %v", out)
	}
}

func TestProvinceComparison_DistinctLabNumbers(t *testing.T) {
	w1 := mustWindow(t, "2024-01-01", "2024-01-31")
	w2 := mustWindow(t, "2024-02-01", "2024-02-29")
	repo := &mockRepo{labNumbers: map[string][]LabNumberRow{
		w1.String(): {
			// LAB-1 flagged twice (two mnemonics produce two result rows,
			// but SELECT DISTINCT collapses them; simulate the edge where
			// the same lab number still arrives twice via both partitions).
			{SubmitterID: "10001", County: "BATANGAS", LabNumber: "LAB-1"},
			{SubmitterID: "10001", County: "BATANGAS", LabNumber: "LAB-1"},
			{SubmitterID: "10001", County: "BATANGAS", LabNumber: "LAB-2"},
		},
		w2.String(): {
			{SubmitterID: "10001", County: "BATANGAS  ", LabNumber: "LAB-3"},
		},
	}}
	svc := NewService(repo)

	rows, err := svc.ProvinceComparison(context.Background(), w1, w2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one province row, got %v", rows)
	}
	row := rows[0]
	if row.Period1Count != 2 {
		t.Errorf("expected distinct count 2 in period 1, got %d", row.Period1Count)
	}
	if row.Period2Count != 1 {
		t.Errorf("expected count 1 in period 2, got %d", row.Period2Count)
	}
	if row.Delta != "-50.00%" {
		t.Errorf("expected delta -50.00%%, got %s", row.Delta)
	}
}

func TestProvinceComparison_AbsentPeriodCountsZero(t *testing.T) {
	w1 := mustWindow(t, "2024-01-01", "2024-01-31")
	w2 := mustWindow(t, "2024-02-01", "2024-02-29")
	repo := &mockRepo{labNumbers: map[string][]LabNumberRow{
		w1.String(): {{SubmitterID: "10001", County: "BATANGAS", LabNumber: "LAB-1"}},
		w2.String(): {{SubmitterID: "20001", County: "QUEZON", LabNumber: "LAB-2"}},
	}}
	svc := NewService(repo)

	rows, _ := svc.ProvinceComparison(context.Background(), w1, w2)
	if len(rows) != 2 {
		t.Fatalf("expected two provinces, got %v", rows)
	}
	// Sorted by province name: BATANGAS then QUEZON.
	if rows[0].Period2Count != 0 || rows[1].Period1Count != 0 {
		t.Errorf("absent periods must count zero: %v", rows)
	}
	if rows[1].Delta != "N/A" {
		t.Errorf("zero baseline must yield N/A, got %s", rows[1].Delta)
	}
}

func TestProvinceComparison_WhitespaceMergesGroups(t *testing.T) {
	w1 := mustWindow(t, "2024-01-01", "2024-01-31")
	w2 := mustWindow(t, "2024-02-01", "2024-02-29")
	repo := &mockRepo{labNumbers: map[string][]LabNumberRow{
		w1.String(): {
			{SubmitterID: "10001", County: "BATANGAS", LabNumber: "LAB-1"},
			{SubmitterID: "10002", County: "BATANGAS  ", LabNumber: "LAB-2"},
		},
	}}
	svc := NewService(repo)

	rows, _ := svc.ProvinceComparison(context.Background(), w1, w2)
	if len(rows) != 1 {
		t.Fatalf("padded county must merge into one group, got %v", rows)
	}
	if rows[0].Period1Count != 2 {
		t.Errorf("expected merged count 2, got %d", rows[0].Period1Count)
	}
}

func TestSummaryCards(t *testing.T) {
	w := mustWindow(t, "2024-01-01", "2024-01-31")
	repo := &mockRepo{
		counts: map[string]int64{
			"1": 500, // received set starts with code 1
			"4": 450, // screened_summary set starts with code 4
		},
		labNumbers: map[string][]LabNumberRow{
			w.String(): {
				{SubmitterID: "10001", County: "BATANGAS", LabNumber: "LAB-1"},
				{SubmitterID: "10002", County: "QUEZON", LabNumber: "LAB-1"},
				{SubmitterID: "10001", County: "BATANGAS", LabNumber: "LAB-2"},
			},
		},
	}
	svc := NewService(repo)

	cards, err := svc.SummaryCards(context.Background(), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cards.Received != 500 || cards.Screened != 450 {
		t.Errorf("unexpected counters: %+v", cards)
	}
	if cards.Unsatisfactory != 2 {
		t.Errorf("expected 2 distinct unsatisfactory lab numbers, got %d", cards.Unsatisfactory)
	}
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	cause := httpapi.DataSourceUnavailable(context.DeadlineExceeded)
	repo := &mockRepo{err: cause}
	svc := NewService(repo)
	w := mustWindow(t, "2024-01-01", "2024-01-31")

	if _, err := svc.TopByCount(context.Background(), w, "all", 0); err == nil {
		t.Error("expected error from TopByCount")
	}
	_, err := svc.ProvinceComparison(context.Background(), w, w)
	e, ok := httpapi.AsError(err)
	if !ok || e.Kind != httpapi.KindDataSourceUnavailable {
		t.Errorf("expected DataSourceUnavailable to propagate, got %v", err)
	}
}

func TestIdempotence(t *testing.T) {
	repo := &mockRepo{facilities: []FacilityRow{
		{SubmitterID: "10001", FacilityName: "Alpha RHU", County: "BATANGAS", TotalSamples: 50, UnsatCount: 2},
		{SubmitterID: "10002", FacilityName: "Bravo DH", County: "QUEZON", TotalSamples: 80, UnsatCount: 9},
	}}
	svc := NewService(repo)
	w := mustWindow(t, "2024-01-01", "2024-01-31")

	first, _ := svc.TopByCount(context.Background(), w, "all", 0)
	second, _ := svc.TopByCount(context.Background(), w, "all", 0)
	if !reflect.DeepEqual(first, second) {
		t.Error("identical calls against unchanged data must return identical results")
	}
}

func TestRate(t *testing.T) {
	cases := []struct {
		unsat, total int64
		want         float64
	}{
		{5, 100, 5.00},
		{1, 3, 33.33},
		{0, 50, 0},
		{0, 0, 0},
		{7, 7, 100},
	}
	for _, tc := range cases {
		if got := Rate(tc.unsat, tc.total); got != tc.want {
			t.Errorf("Rate(%d, %d) = %v, want %v", tc.unsat, tc.total, got, tc.want)
		}
	}
}

func TestPercentageDelta(t *testing.T) {
	cases := []struct {
		a, b int64
		want string
	}{
		{100, 150, "+50.00%"},
		{100, 50, "-50.00%"},
		{100, 100, "+0.00%"},
		{0, 10, "N/A"},
		{0, 0, "N/A"},
	}
	for _, tc := range cases {
		if got := PercentageDelta(tc.a, tc.b); got != tc.want {
			t.Errorf("PercentageDelta(%d, %d) = %s, want %s", tc.a, tc.b, got, tc.want)
		}
	}
}
