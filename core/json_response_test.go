package core_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifykit/core"
)

func render(t *testing.T, resp core.Response) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, resp.Render(rec, req))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestJSON(t *testing.T) {
	t.Parallel()

	rec, body := render(t, core.JSON("ok", map[string]int{"count": 3}, map[string]any{"page": 1}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", body["code"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, data["count"])
}

func TestJSONWithStatus(t *testing.T) {
	t.Parallel()

	rec, body := render(t, core.JSONWithStatus(http.StatusAccepted, "queued", nil, nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "queued", body["code"])
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	t.Run("plain errors become 500", func(t *testing.T) {
		t.Parallel()
		rec, body := render(t, core.JSONError(errors.New("boom")))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		detail, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "internal_error", detail["code"])
		assert.Equal(t, "boom", detail["message"])
	})

	t.Run("http errors keep their status and key", func(t *testing.T) {
		t.Parallel()
		rec, body := render(t, core.JSONError(core.ErrConflict))

		assert.Equal(t, http.StatusConflict, rec.Code)
		detail, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "conflict", detail["code"])
	})

	t.Run("wrapped http errors are unwrapped", func(t *testing.T) {
		t.Parallel()
		wrapped := errors.Join(core.ErrNotFound, errors.New("record gone"))
		rec, _ := render(t, core.JSONError(wrapped))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrapped http errors keep the cause in the message", func(t *testing.T) {
		t.Parallel()
		wrapped := fmt.Errorf("%w: unknown field \"chanels\"", core.ErrBadRequest)
		rec, body := render(t, core.JSONError(wrapped))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		detail, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "bad_request", detail["code"])
		assert.Contains(t, detail["message"], `unknown field "chanels"`)
	})

	t.Run("validation errors carry field details", func(t *testing.T) {
		t.Parallel()
		verr := core.NewValidationError()
		verr.Add("email", "is required")
		verr.Add("email", "must be valid")

		rec, body := render(t, core.JSONError(verr))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		detail, ok := body["error"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "validation_error", detail["code"])

		details, ok := detail["details"].(map[string]any)
		require.True(t, ok)
		msgs, ok := details["email"].([]any)
		require.True(t, ok)
		assert.Len(t, msgs, 2)
	})
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	verr := core.NewValidationError()
	assert.True(t, verr.IsEmpty())

	verr.Add("name", "too short")
	verr.Add("age", "must be positive")
	assert.False(t, verr.IsEmpty())
	assert.Equal(t, "validation error: age: must be positive, name: too short", verr.Error())
}
