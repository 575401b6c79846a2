package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespond_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Respond(rec, http.StatusCreated, map[string]string{"id": "1"}, "created")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(201), body["statusCode"])
	assert.Equal(t, "created", body["message"])
	assert.Equal(t, map[string]any{"id": "1"}, body["data"])
}

func TestRespondError_EmptyData(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, "nope", http.StatusLocked)

	assert.JSONEq(t, `{"success":false,"statusCode":423,"message":"nope","data":{}}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Email string `json:"email"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com"}`))
	require.NoError(t, DecodeJSON(rec, req, 1024, &dst))
	assert.Equal(t, "a@x.com", dst.Email)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	assert.ErrorIs(t, DecodeJSON(rec, req, 1024, &dst), ErrInvalidJSON)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 100)+`"}`))
	assert.ErrorIs(t, DecodeJSON(rec, req, 16, &dst), ErrBodyTooLarge)
}

func TestMatchError(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	mappings := []ErrorMapping{
		{Err: errA, Status: http.StatusBadRequest},
		{Err: errB, Status: http.StatusConflict, Message: "custom"},
	}

	m, ok := MatchError(fmt.Errorf("wrapped: %w", errA), mappings)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, m.Status)
	assert.Equal(t, "a failed", m.Message)

	m, ok = MatchError(errB, mappings)
	require.True(t, ok)
	assert.Equal(t, "custom", m.Message)

	_, ok = MatchError(errors.New("other"), mappings)
	assert.False(t, ok)
}
