// Package window provides the date-range type every report query is scoped
// by, plus helpers for extracting and validating it from request parameters.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// Window is an inclusive date range. From is the start of its day; To is
// extended to the last second of its day so a window covers full calendar
// days, matching how the reports are requested from the dashboard.
type Window struct {
	From time.Time
	To   time.Time
}

// ErrInvalid reports a missing or malformed window parameter.
type ErrInvalid struct {
	Param  string
	Reason string
}

func (e *ErrInvalid) Error() string {
	return fmt.Sprintf("invalid window parameter %q: %s", e.Param, e.Reason)
}

// ParseDate accepts "YYYY-MM-DD" or "YYYY-MM-DD HH:MM:SS".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(dateTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateLayout, s, time.Local)
}

// New builds a Window from raw from/to values, extending To to end of day.
func New(fromRaw, toRaw string) (Window, error) {
	if strings.TrimSpace(fromRaw) == "" {
		return Window{}, &ErrInvalid{Param: "from", Reason: "missing"}
	}
	if strings.TrimSpace(toRaw) == "" {
		return Window{}, &ErrInvalid{Param: "to", Reason: "missing"}
	}

	from, err := ParseDate(fromRaw)
	if err != nil {
		return Window{}, &ErrInvalid{Param: "from", Reason: "expected YYYY-MM-DD or YYYY-MM-DD HH:MM:SS"}
	}
	to, err := ParseDate(toRaw)
	if err != nil {
		return Window{}, &ErrInvalid{Param: "to", Reason: "expected YYYY-MM-DD or YYYY-MM-DD HH:MM:SS"}
	}

	to = EndOfDay(to)
	if to.Before(from) {
		return Window{}, &ErrInvalid{Param: "to", Reason: "end date precedes start date"}
	}
	return Window{From: from, To: to}, nil
}

// FromContext extracts the from/to query parameters from an echo context.
func FromContext(c echo.Context) (Window, error) {
	return New(c.QueryParam("from"), c.QueryParam("to"))
}

// FromContextNamed extracts a window from custom parameter names, used by the
// two-period comparison endpoint (dateFrom1/dateTo1, dateFrom2/dateTo2).
func FromContextNamed(c echo.Context, fromParam, toParam string) (Window, error) {
	w, err := New(c.QueryParam(fromParam), c.QueryParam(toParam))
	if err != nil {
		if iv, ok := err.(*ErrInvalid); ok {
			// Report the caller's parameter name, not the generic one.
			if iv.Param == "from" {
				iv.Param = fromParam
			} else {
				iv.Param = toParam
			}
		}
		return Window{}, err
	}
	return w, nil
}

// EndOfDay returns t moved to 23:59:59 of its day. Values that already carry
// a time-of-day keep their date but still cover the full day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

func (w Window) String() string {
	return w.From.Format(dateLayout) + ".." + w.To.Format(dateLayout)
}
