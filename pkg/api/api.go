// Package api holds the JSON helpers shared by the section APIs mounted
// under /api/v1.
package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
)

// Prefix is where the section APIs are mounted.
const Prefix = "/api/v1"

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto an APIError. Validation failures answer 422 with
// every message in details.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := core.RequestID(r.Context())

	var verrs core.ValidationErrors
	if stderrors.As(err, &verrs) {
		WriteJSON(w, http.StatusUnprocessableEntity, &errors.APIError{
			StatusCode: http.StatusUnprocessableEntity,
			Code:       "validation_failed",
			Message:    "validation failed",
			RequestID:  reqID,
			Details:    map[string]any{"errors": verrs},
		})
		return
	}

	apiErr := errors.ToAPIError(err, reqID)
	WriteJSON(w, apiErr.StatusCode, apiErr)
}

// Decode reads a JSON body into v, rejecting unknown fields and trailing data.
func Decode(r *http.Request, v any) error {
	const op = "api.Decode"

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.E(errors.KindInvalidInput, op, "request body is empty")
		}
		return errors.E(errors.KindInvalidInput, op, fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return errors.E(errors.KindInvalidInput, op, "request body must contain a single JSON object")
	}
	return nil
}

// Handle adapts a handler returning (status, body, error) to http.Handler.
type Handle func(r *http.Request) (int, any, error)

func (h Handle) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status, body, err := h(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	WriteJSON(w, status, body)
}
