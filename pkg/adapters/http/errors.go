package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/scorebridge"
	"github.com/aretw0/scorebridge/pkg/bridge"
	"github.com/aretw0/scorebridge/pkg/domain"
	"github.com/aretw0/scorebridge/pkg/saves"
	"github.com/go-playground/validator/v10"
)

var (
	errBadRequest = errors.New("bad request")
	errNameTaken  = errors.New("a save with this name already exists")
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string           `json:"error"`
	Kind  domain.ErrorKind `json:"kind,omitempty"`
}

func newErrorBody(err error) errorBody {
	return errorBody{Error: err.Error(), Kind: domain.KindOf(err)}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, saves.ErrSaveNotFound),
		errors.Is(err, scorebridge.ErrNoExamples):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, saves.ErrInvalidSave):
		return http.StatusBadRequest
	case errors.Is(err, errNameTaken):
		return http.StatusConflict
	case errors.Is(err, bridge.ErrDisposed),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}

	switch domain.KindOf(err) {
	case domain.KindInitTimeout, domain.KindEvalTimeout:
		return http.StatusGatewayTimeout
	case domain.KindInitNetworkFailure:
		return http.StatusBadGateway
	case domain.KindInitOtherFailure:
		return http.StatusServiceUnavailable
	case domain.KindSerializationFailure, domain.KindEvalProgramInjection:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, newErrorBody(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a bounded JSON body into dst and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_without":
			msgs = append(msgs, fe.Namespace()+" is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
