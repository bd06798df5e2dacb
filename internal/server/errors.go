package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/jobs-newsroom/internal/pipeline"
)

// Trigger outcomes, used as the status label of the trigger metric
const (
	outcomePublished    = "published"
	outcomeSkipped      = "skipped"
	outcomeFailed       = "failed"
	outcomeUnauthorized = "unauthorized"
	outcomeThrottled    = "throttled"
	outcomeCanceled     = "canceled"
)

// HTTPStatus returns the trigger response status for a run error.
// Soft aborts are not failures and answer 200.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var abortErr *pipeline.AbortError
	if errors.As(err, &abortErr) && abortErr.Reason.Soft() {
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

// outcomeLabel classifies a run error for the trigger metric
func outcomeLabel(err error) string {
	switch HTTPStatus(err) {
	case http.StatusOK:
		if err == nil {
			return outcomePublished
		}
		return outcomeSkipped
	default:
		return outcomeFailed
	}
}
