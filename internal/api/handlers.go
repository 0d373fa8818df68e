package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/example/draft-agent/internal/archive"
	apperrors "github.com/example/draft-agent/internal/errors"
	"github.com/example/draft-agent/internal/logging"
	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/stream"
	"github.com/example/draft-agent/internal/validation"
)

// handleDraft validates a submission and streams its run. A run already
// live for the same session is cancelled first; a client disconnect
// cancels this one.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	sub, err := models.DecodeSubmission(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, apperrors.InvalidInput("body", err.Error()))
		return
	}
	if sub.SessionID == "" {
		sub.SessionID = r.Header.Get("X-Session-ID")
	}
	if err := validation.Struct(sub); err != nil {
		respondError(w, apperrors.From(err))
		return
	}

	ctx, release, err := s.sessions.Begin(r.Context(), sub.SessionID)
	if err != nil {
		return
	}
	defer release()

	runID := s.newID()
	log := s.log.WithFields(map[string]interface{}{
		logging.FieldRunID:     runID,
		logging.FieldSessionID: sub.SessionID,
		logging.FieldRequestID: middleware.GetReqID(r.Context()),
	})
	w.Header().Set("X-Run-ID", runID)
	enc := stream.NewHTTPEncoder(w)

	started := s.now()
	log.Info("run started", map[string]interface{}{"company": sub.Contact.Company, "signals": len(sub.Signals)})
	stopPings := s.keepAlive(enc)
	st, outcome, runErr := s.runner.Run(ctx, sub.Input(), enc.Emit)
	stopPings()
	release()
	finished := s.now()

	fields := map[string]interface{}{
		"outcome":             string(outcome),
		logging.FieldDuration: finished.Sub(started).Milliseconds(),
		"errors":              len(st.Errors),
	}
	if runErr != nil {
		fields[logging.FieldError] = runErr
		log.Error("run failed", fields)
	} else {
		log.Info("run finished", fields)
	}

	if s.archive == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), archiveTimeout)
	defer cancel()
	rec := archive.Record{
		RunID:      runID,
		SessionID:  sub.SessionID,
		Outcome:    outcome,
		State:      st,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err := s.archive.Save(actx, rec); err != nil {
		log.Warn("archive save failed", map[string]interface{}{logging.FieldError: err})
	}
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if !s.sessions.Cancel(id) {
		respondError(w, apperrors.NotFound("session", id))
		return
	}
	s.log.Info("session cancelled", map[string]interface{}{logging.FieldSessionID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	if s.archive == nil {
		respondError(w, apperrors.NotFound("run", id))
		return
	}
	rec, err := s.archive.Get(r.Context(), id)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		respondError(w, apperrors.NotFound("run", id))
		return
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, apperrors.Timeout("archive lookup"))
		return
	case err != nil:
		respondError(w, apperrors.ExternalService("archive", err))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// keepAlive writes a comment frame every interval until the returned stop
// func is called. stop waits for the writer to exit.
func (s *Server) keepAlive(enc *stream.Encoder) (stop func()) {
	if s.pingEvery <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		t := time.NewTicker(s.pingEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := enc.Comment("ping"); err != nil {
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, err *apperrors.AppError) {
	respondJSON(w, err.HTTPStatus, err.ToResponse())
}
