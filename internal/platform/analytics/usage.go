package analytics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
)

// endpointStats accumulates per-report counters. Each endpoint carries its
// own mutex so hot report routes do not contend with each other.
type endpointStats struct {
	Path          string
	TotalRequests int64
	TotalErrors   int64
	TotalDuration int64 // nanoseconds
	StatusCounts  map[int]int64
	mu            sync.Mutex
}

// EndpointSummary is the per-route slice of the usage snapshot.
type EndpointSummary struct {
	Path            string        `json:"path"`
	TotalRequests   int64         `json:"totalRequests"`
	ErrorRate       float64       `json:"errorRate"`
	AvgLatency      time.Duration `json:"avgLatency"`
	StatusBreakdown map[int]int64 `json:"statusBreakdown"`
}

// Overview is the snapshot served to operators. It answers the questions that
// come up when a dashboard feels slow: which report routes are hot, and which
// are failing.
type Overview struct {
	TotalRequests   int64              `json:"totalRequests"`
	TotalErrors     int64              `json:"totalErrors"`
	ErrorRate       float64            `json:"errorRate"`
	AvgLatency      time.Duration      `json:"avgLatency"`
	UniqueEndpoints int                `json:"uniqueEndpoints"`
	TopEndpoints    []*EndpointSummary `json:"topEndpoints"`
}

// UsageTracker is a thread-safe in-process aggregator of report-route usage.
type UsageTracker struct {
	endpointCounters map[string]*endpointStats
	mu               sync.RWMutex
	totalRequests    int64
	totalErrors      int64
	totalDuration    int64 // nanoseconds
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{endpointCounters: make(map[string]*endpointStats)}
}

// Record updates the counters for one completed request.
func (ut *UsageTracker) Record(path string, statusCode int, duration time.Duration) {
	isError := statusCode >= 400

	atomic.AddInt64(&ut.totalRequests, 1)
	if isError {
		atomic.AddInt64(&ut.totalErrors, 1)
	}
	atomic.AddInt64(&ut.totalDuration, int64(duration))

	ut.mu.Lock()
	ep, ok := ut.endpointCounters[path]
	if !ok {
		ep = &endpointStats{Path: path, StatusCounts: make(map[int]int64)}
		ut.endpointCounters[path] = ep
	}
	ut.mu.Unlock()

	ep.mu.Lock()
	ep.TotalRequests++
	if isError {
		ep.TotalErrors++
	}
	ep.TotalDuration += int64(duration)
	ep.StatusCounts[statusCode]++
	ep.mu.Unlock()
}

// GetOverview returns the current snapshot with the top five routes.
func (ut *UsageTracker) GetOverview() *Overview {
	total := atomic.LoadInt64(&ut.totalRequests)
	errors := atomic.LoadInt64(&ut.totalErrors)
	dur := atomic.LoadInt64(&ut.totalDuration)

	var errorRate float64
	var avgLatency time.Duration
	if total > 0 {
		errorRate = float64(errors) / float64(total)
		avgLatency = time.Duration(dur / total)
	}

	ut.mu.RLock()
	uniqueEndpoints := len(ut.endpointCounters)
	ut.mu.RUnlock()

	return &Overview{
		TotalRequests:   total,
		TotalErrors:     errors,
		ErrorRate:       errorRate,
		AvgLatency:      avgLatency,
		UniqueEndpoints: uniqueEndpoints,
		TopEndpoints:    ut.TopEndpoints(5),
	}
}

// TopEndpoints returns up to limit routes sorted by request count descending.
func (ut *UsageTracker) TopEndpoints(limit int) []*EndpointSummary {
	ut.mu.RLock()
	summaries := make([]*EndpointSummary, 0, len(ut.endpointCounters))
	for _, ep := range ut.endpointCounters {
		summaries = append(summaries, buildEndpointSummary(ep))
	}
	ut.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TotalRequests > summaries[j].TotalRequests
	})

	if limit > len(summaries) {
		limit = len(summaries)
	}
	return summaries[:limit]
}

// EndpointStats returns the summary for one route, nil when never hit.
func (ut *UsageTracker) EndpointStats(path string) *EndpointSummary {
	ut.mu.RLock()
	ep, ok := ut.endpointCounters[path]
	ut.mu.RUnlock()
	if !ok {
		return nil
	}
	return buildEndpointSummary(ep)
}

func buildEndpointSummary(ep *endpointStats) *EndpointSummary {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	var errorRate float64
	var avgLatency time.Duration
	if ep.TotalRequests > 0 {
		errorRate = float64(ep.TotalErrors) / float64(ep.TotalRequests)
		avgLatency = time.Duration(ep.TotalDuration / ep.TotalRequests)
	}

	statusBreakdown := make(map[int]int64, len(ep.StatusCounts))
	for code, count := range ep.StatusCounts {
		statusBreakdown[code] = count
	}

	return &EndpointSummary{
		Path:            ep.Path,
		TotalRequests:   ep.TotalRequests,
		ErrorRate:       errorRate,
		AvgLatency:      avgLatency,
		StatusBreakdown: statusBreakdown,
	}
}

// UsageMiddleware records every request into the tracker. It runs after the
// handler so the written status code is the one counted.
func UsageMiddleware(tracker *UsageTracker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			tracker.Record(c.Request().URL.Path, c.Response().Status, time.Since(start))
			return err
		}
	}
}
