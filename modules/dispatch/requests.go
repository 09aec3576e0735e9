package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/notifykit/core"
	"github.com/dmitrymomot/notifykit/pkg/notify"
)

// maxBodySize caps request bodies; send payloads are small JSON documents.
const maxBodySize = 1 << 20

// processRequest is the body of POST /process.
type processRequest struct {
	Limit int `json:"limit,omitempty"`
}

// decodeJSON parses a request body strictly: unknown fields and
// trailing data are rejected so client typos fail loudly instead of
// being silently dropped.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %s", core.ErrBadRequest, err.Error())
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected trailing data", core.ErrBadRequest)
	}
	return nil
}

// queueFilter parses and validates the GET /queue query parameters.
func queueFilter(r *http.Request) (notify.Filter, error) {
	q := r.URL.Query()
	verr := core.NewValidationError()

	var filter notify.Filter
	if raw := q.Get("status"); raw != "" {
		status := notify.Status(raw)
		if !status.Valid() {
			verr.Add("status", "unknown status "+strconv.Quote(raw))
		}
		filter.Status = status
	}
	if raw := q.Get("channel"); raw != "" {
		channel := notify.Channel(raw)
		if !channel.Valid() {
			verr.Add("channel", "unknown channel "+strconv.Quote(raw))
		}
		filter.Channel = channel
	}
	filter.Type = notify.Type(q.Get("type"))

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), defaultListLimit); err != nil {
		verr.Add("limit", err.Error())
	}
	if filter.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		verr.Add("offset", err.Error())
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	if !verr.IsEmpty() {
		return notify.Filter{}, verr
	}
	return filter, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return n, nil
}
