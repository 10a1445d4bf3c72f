package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exploopio/vrx-portal/pkg/core"
	"github.com/exploopio/vrx-portal/pkg/errors"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.APIError {
	t.Helper()
	var body errors.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteError_Kinds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u9", nil)
	req = req.WithContext(core.WithRequestID(req.Context(), "req-42"))

	rec := httptest.NewRecorder()
	WriteError(rec, req, errors.NotFound("users.GetByID", "User", "u9"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "not_found", body.Code)
	assert.Equal(t, "User with id u9 not found", body.Message)
	assert.Equal(t, "req-42", body.RequestID)
}

func TestWriteError_Validation(t *testing.T) {
	var verrs core.ValidationErrors
	verrs.Add("name", "Name is required")
	verrs.Add("email", "Email format is invalid")

	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users", nil), verrs)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "validation_failed", body.Code)
	assert.Len(t, body.Details["errors"], 2)
}

func TestDecode(t *testing.T) {
	type payload struct {
		Status string `json:"status"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"status":"resolved"}`, false},
		{"empty", ``, true},
		{"unknown field", `{"status":"open","extra":1}`, true},
		{"trailing", `{"status":"open"}{"status":"open"}`, true},
		{"malformed", `{"status":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			err := Decode(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(tt.body)), &p)
			if tt.wantErr {
				assert.True(t, errors.IsInvalidInputError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "resolved", p.Status)
		})
	}
}

func TestHandle(t *testing.T) {
	ok := Handle(func(r *http.Request) (int, any, error) {
		return http.StatusCreated, map[string]string{"id": "u5"}, nil
	})
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"u5"}`, rec.Body.String())

	gone := Handle(func(r *http.Request) (int, any, error) { return http.StatusNoContent, nil, nil })
	rec = httptest.NewRecorder()
	gone.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	failed := Handle(func(r *http.Request) (int, any, error) {
		return 0, nil, errors.FromContext("users.List", context.Canceled)
	})
	rec = httptest.NewRecorder()
	failed.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, errors.KindCanceled.HTTPStatus(), rec.Code)
}
