package authapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// All error bodies share one shape: {"error":{"code","message"}}. Codes are
// stable identifiers clients may branch on; messages are free to change.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// Decode failures the handlers can distinguish from generic syntax errors.
var (
	errBodyMissing  = errors.New("authapi: request body missing")
	errBodyTrailing = errors.New("authapi: trailing data after json value")
	errBodyTooLarge = errors.New("authapi: request body too large")
)

// writeJSON emits v with Cache-Control: no-store. Every response on this
// surface is credential-adjacent, so nothing is cacheable.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: msg}})
}

// writeDecodeError maps a decodeJSON failure onto the wire. Oversized
// bodies get their own status; everything else is an undifferentiated 400.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
}

// decodeJSON reads exactly one JSON value into dst, rejecting unknown
// fields, oversized bodies, and trailing garbage. Unknown-field rejection is
// deliberate: a misspelled credential field must fail loudly instead of
// silently authenticating with a zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errBodyMissing
	}
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return fmt.Errorf("authapi: decode body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errBodyTrailing
	}
	return nil
}
