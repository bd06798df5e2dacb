package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonathan/jobs-newsroom/internal/observability"
	"github.com/jonathan/jobs-newsroom/internal/pipeline"
	"github.com/jonathan/jobs-newsroom/internal/server/middleware"
	"github.com/jonathan/jobs-newsroom/internal/types"
	"go.uber.org/zap"
)

// runKey collapses concurrent triggers into a single run
const runKey = "generate-news"

// ArticleSummary is the article as reported to the trigger caller
type ArticleSummary struct {
	ID          int64             `json:"id"`
	Slug        string            `json:"slug"`
	Title       string            `json:"title"`
	Category    types.Category    `json:"category"`
	ContentType types.ContentType `json:"contentType"`
	JobsUsed    int               `json:"jobsUsed"`
}

// TriggerResponse is the 200 body of the trigger endpoint
type TriggerResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Article *ArticleSummary `json:"article,omitempty"`
}

// ErrorResponse is the 500 body of the trigger endpoint
type ErrorResponse struct {
	Error   string          `json:"error"`
	Details string          `json:"details,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Article *ArticleSummary `json:"article,omitempty"`
}

func summarize(a *types.Article, jobsUsed int) *ArticleSummary {
	if a == nil {
		return nil
	}
	return &ArticleSummary{
		ID:          a.ID,
		Slug:        a.Slug,
		Title:       a.Title,
		Category:    a.Category,
		ContentType: a.ContentType,
		JobsUsed:    jobsUsed,
	}
}

// runResult is what the shared run hands every waiting caller
type runResult struct {
	outcome  *pipeline.Outcome
	err      error
	shared   bool
	// canceled is set when the caller left before the run finished
	canceled bool
}

// runOnce runs the pipeline, joining a run already in flight. The run is detached
// from the caller's cancellation and bounded by the run timeout instead.
func (s *Server) runOnce(ctx context.Context) runResult {
	ch := s.runs.DoChan(runKey, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
		defer cancel()
		return s.runner.Run(runCtx)
	})

	select {
	case res := <-ch:
		out, _ := res.Val.(*pipeline.Outcome)
		return runResult{outcome: out, err: res.Err, shared: res.Shared}
	case <-ctx.Done():
		return runResult{err: ctx.Err(), canceled: true}
	}
}

// buildResponse maps a run result to its status code and body
func buildResponse(res runResult) (int, any) {
	if res.err == nil {
		out := res.outcome
		return http.StatusOK, TriggerResponse{Success: true, Article: summarize(out.Article, out.JobsUsed)}
	}

	var abortErr *pipeline.AbortError
	if errors.As(res.err, &abortErr) {
		if abortErr.Reason.Soft() {
			return http.StatusOK, TriggerResponse{
				Success: false,
				Message: abortErr.Message,
				Reason:  string(abortErr.Reason),
			}
		}
		body := ErrorResponse{
			Error:   "Failed to generate news article",
			Details: res.err.Error(),
			Reason:  string(abortErr.Reason),
		}
		if abortErr.Article != nil {
			body.Article = summarize(abortErr.Article, len(abortErr.Article.GenerationMetadata.JobsUsed))
		}
		return HTTPStatus(res.err), body
	}

	return HTTPStatus(res.err), ErrorResponse{
		Error:   "Failed to generate news article",
		Details: res.err.Error(),
	}
}

// handleTrigger runs the pipeline once and reports the outcome
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	res := s.runOnce(r.Context())
	if res.canceled {
		s.metrics.RecordTrigger(outcomeCanceled)
		s.logger.Info("trigger caller went away before the run finished",
			zap.String("caller", middleware.GetCaller(r)))
		return
	}

	if res.shared {
		w.Header().Set("X-Run-Shared", "true")
	}
	s.metrics.RecordTrigger(outcomeLabel(res.err))
	s.logger.Info("trigger handled",
		zap.String("caller", middleware.GetCaller(r)),
		zap.Bool("shared", res.shared),
		zap.String(observability.FieldResultKind, outcomeLabel(res.err)))

	status, body := buildResponse(res)
	s.jsonResponse(w, status, body)
}

// handleTriggerStream runs the pipeline and streams its progress as SSE
func (s *Server) handleTriggerStream(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	id, events := s.progress.subscribe()
	defer s.progress.unsubscribe(id)

	done := make(chan runResult, 1)
	go func() {
		done <- s.runOnce(r.Context())
	}()

	for {
		select {
		case event := <-events:
			if err := sse.WriteEvent("progress", event); err != nil {
				return
			}
		case res := <-done:
			drain(events, sse)
			if res.canceled {
				s.metrics.RecordTrigger(outcomeCanceled)
				return
			}
			s.metrics.RecordTrigger(outcomeLabel(res.err))
			status, body := buildResponse(res)
			if status != http.StatusOK {
				sse.WriteError(res.err.Error())
			}
			sse.WriteComplete(body)
			return
		}
	}
}

// drain writes events already queued when the run finished
func drain(events <-chan pipeline.ProgressEvent, sse *SSEWriter) {
	for {
		select {
		case event := <-events:
			if err := sse.WriteEvent("progress", event); err != nil {
				return
			}
		default:
			return
		}
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		if err := s.healthCheck(r.Context()); err != nil {
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
