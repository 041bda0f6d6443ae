package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	errs "github.com/matzehuels/exprtrail/pkg/errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    errs.Code `json:"code"`
	Message string    `json:"message"`
}

// statusFor maps an error to an HTTP status by the class of its code.
// A bad document is 422 like a broken graph; UNSUPPORTED is a media type.
func statusFor(err error) int {
	code := errs.GetCode(err)
	switch errs.ClassOf(err) {
	case errs.ClassContract, errs.ClassInvariant:
		return http.StatusUnprocessableEntity
	case errs.ClassLookup:
		return http.StatusNotFound
	case errs.ClassInput:
		switch code {
		case errs.ErrCodeInvalidDocument:
			return http.StatusUnprocessableEntity
		case errs.ErrCodeUnsupported:
			return http.StatusUnsupportedMediaType
		}
		return http.StatusBadRequest
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// writeError writes the structured error body. Internal errors hide their
// message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := errs.GetCode(err)
	msg := errs.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.cfg.Logger.Error("request failed", "path", r.URL.Path, "error", err)
		code = errs.ErrCodeInternal
		msg = "internal error"
	}
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: msg}})
}
