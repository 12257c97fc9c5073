package http

import (
	"fmt"
	"net/http"

	"github.com/aretw0/scorebridge"
	"github.com/aretw0/scorebridge/pkg/bridge"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// RuntimeStatus reports the worker lifecycle.
type RuntimeStatus struct {
	State bridge.State     `json:"state"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
	Error string           `json:"error,omitempty"`
}

// EvaluateFailure is returned when an evaluation fails after it was recorded.
type EvaluateFailure struct {
	*scorebridge.Snapshot
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
}

// ExampleResponse is an example together with the request it scores.
type ExampleResponse struct {
	Example ports.Example         `json:"example"`
	Request domain.ScoringRequest `json:"request"`
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "scorebridge-http",
		"version":     scorebridge.Release(),
		"api_version": s.specVersion(),
	})
}

func (s *Server) runtimeStatus() RuntimeStatus {
	state, err := s.pg.RuntimeState()
	status := RuntimeStatus{State: state}
	if err != nil {
		status.Error = err.Error()
		status.Kind = domain.KindOf(err)
	}
	return status
}

func (s *Server) getRuntime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runtimeStatus())
}

func (s *Server) initRuntime(w http.ResponseWriter, r *http.Request) {
	if err := s.pg.Initialize(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.runtimeStatus())
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.pg.Sessions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.pg.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.pg.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var body evaluateBody
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	var req domain.ScoringRequest
	if body.Request != nil {
		req = *body.Request
	} else {
		var err error
		req, err = s.pg.ExampleRequest(r.Context(), body.ExampleID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	snap, err := s.pg.Evaluate(r.Context(), chi.URLParam(r, "id"), req)
	switch {
	case err != nil && snap == nil:
		s.writeError(w, r, err)
	case err != nil:
		s.logger.Warn("evaluation failed", "session_id", snap.ID, "kind", domain.KindOf(err), "err", err)
		writeJSON(w, statusFor(err), EvaluateFailure{
			Snapshot: snap,
			Error:    err.Error(),
			Kind:     domain.KindOf(err),
		})
	default:
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) stepWith(fn func(*http.Request, string) (*scorebridge.Snapshot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fn(r, chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) nextStep(w http.ResponseWriter, r *http.Request) {
	s.stepWith(func(r *http.Request, id string) (*scorebridge.Snapshot, error) {
		return s.pg.Next(r.Context(), id)
	})(w, r)
}

func (s *Server) previousStep(w http.ResponseWriter, r *http.Request) {
	s.stepWith(func(r *http.Request, id string) (*scorebridge.Snapshot, error) {
		return s.pg.Previous(r.Context(), id)
	})(w, r)
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	s.stepWith(func(r *http.Request, id string) (*scorebridge.Snapshot, error) {
		return s.pg.Clear(r.Context(), id)
	})(w, r)
}

func (s *Server) seekStep(w http.ResponseWriter, r *http.Request) {
	var body seekBody
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stepWith(func(r *http.Request, id string) (*scorebridge.Snapshot, error) {
		return s.pg.Seek(r.Context(), id, *body.Index)
	})(w, r)
}

func (s *Server) listSaves(w http.ResponseWriter, r *http.Request) {
	list, err := s.pg.Saves().List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.SavedConfiguration{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createSave(w http.ResponseWriter, r *http.Request) {
	var body createSaveBody
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	repo := s.pg.Saves()
	taken, err := repo.NameExists(r.Context(), body.Name, "")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if taken {
		s.writeError(w, r, fmt.Errorf("%w: %q", errNameTaken, body.Name))
		return
	}

	saved, err := repo.Create(r.Context(), body.Name, body.Configuration)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) getSave(w http.ResponseWriter, r *http.Request) {
	saved, err := s.pg.Saves().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) updateSave(w http.ResponseWriter, r *http.Request) {
	var body updateSaveBody
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.pg.Saves().Update(r.Context(), chi.URLParam(r, "id"), body.Configuration)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) deleteSave(w http.ResponseWriter, r *http.Request) {
	if err := s.pg.Saves().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listExamples(w http.ResponseWriter, r *http.Request) {
	src, err := s.pg.Examples()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := src.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []ports.Example{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getExample(w http.ResponseWriter, r *http.Request) {
	src, err := s.pg.Examples()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	ex, err := src.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := s.pg.ExampleRequest(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExampleResponse{Example: ex, Request: req})
}
