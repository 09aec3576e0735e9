package core

import (
	"encoding/json"
	"errors"
	"net/http"
)

// JSONResponse is the standard JSON response envelope.
type JSONResponse struct {
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
	Error   *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail carries machine-readable error information.
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// jsonResponse implements Response for JSON rendering.
type jsonResponse struct {
	status int
	body   JSONResponse
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// JSON creates a 200 JSON response.
func JSON(code string, data any, meta map[string]any) Response {
	return JSONWithStatus(http.StatusOK, code, data, meta)
}

// JSONWithStatus creates a JSON response with an explicit status code.
func JSONWithStatus(status int, code string, data any, meta map[string]any) Response {
	return jsonResponse{
		status: status,
		body: JSONResponse{
			Code: code,
			Data: data,
			Meta: meta,
		},
	}
}

// JSONError creates a JSON error response from an error. Validation
// errors render as 422 with field details, HTTP errors use their own
// status and key, anything else becomes a 500.
func JSONError(err error) Response {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{
		Code:    "internal_error",
		Message: err.Error(),
	}

	var valErr ValidationError
	var httpErr HTTPError
	switch {
	case errors.As(err, &valErr):
		status = http.StatusUnprocessableEntity
		detail.Code = "validation_error"
		if len(valErr) > 0 {
			detail.Details = map[string][]string(valErr)
		}
	case errors.As(err, &httpErr):
		// Keep err.Error() as the message so wrapped context (e.g. a
		// decode explanation) reaches the client.
		status = httpErr.Code
		detail.Code = httpErr.Key
	}

	return jsonResponse{
		status: status,
		body: JSONResponse{
			Code:  detail.Code,
			Error: detail,
		},
	}
}

// JSONErrorWithCode creates a JSON error response with an explicit
// status and error code, keeping the original error text as message.
func JSONErrorWithCode(status int, code string, err error) Response {
	return jsonResponse{
		status: status,
		body: JSONResponse{
			Code: code,
			Error: &ErrorDetail{
				Code:    code,
				Message: err.Error(),
			},
		},
	}
}
