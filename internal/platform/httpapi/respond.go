// Package httpapi defines the response envelope and error translation shared
// by every report endpoint. Handlers return domain errors; the central error
// handler turns them into the structured JSON the dashboard expects, so no
// raw stack trace ever reaches a client.
package httpapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ListResponse is the envelope for collection endpoints.
type ListResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Rows     interface{} `json:"rows,omitempty"`
	RowCount int         `json:"rowCount"`
}

// ErrorResponse is the envelope for failed requests.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// OKList responds with the standard list envelope under the "data" key.
// An empty result is a success, never an error: the dashboard needs to tell
// "no data in range" apart from a failed query.
func OKList(c echo.Context, data interface{}, count int) error {
	return c.JSON(http.StatusOK, ListResponse{Success: true, Data: data, RowCount: count})
}

// OKRows responds with the list envelope under the "rows" key, the shape the
// province comparison endpoint has always used.
func OKRows(c echo.Context, rows interface{}, count int) error {
	return c.JSON(http.StatusOK, ListResponse{Success: true, Rows: rows, RowCount: count})
}

// OK responds with a bare success envelope around a single object.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"success": true, "data": data})
}

// ErrorHandler builds the central echo error handler. Outside development the
// message for 5xx errors is redacted; the full cause still goes to the log.
func ErrorHandler(logger zerolog.Logger, dev bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		kind := "InternalError"
		message := err.Error()

		if apiErr, ok := AsError(err); ok {
			status = apiErr.Status()
			kind = string(apiErr.Kind)
			message = apiErr.Message
			if dev && apiErr.Err != nil {
				message = apiErr.Error()
			}
		} else if httpErr, ok := err.(*echo.HTTPError); ok {
			status = httpErr.Code
			kind = http.StatusText(status)
			if m, ok := httpErr.Message.(string); ok {
				message = m
			}
		}

		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
			if !dev {
				message = "internal server error"
			}
		}

		resp := ErrorResponse{
			Error:     kind,
			Message:   message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if err := c.JSON(status, resp); err != nil {
			logger.Error().Err(err).Msg("failed to write error response")
		}
	}
}
