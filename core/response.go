// Package core provides the JSON response envelope and HTTP error
// vocabulary shared by every handler module.
package core

import "net/http"

// Response renders itself to an http.ResponseWriter. Implementations
// set headers, status code, and write the body.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Render writes a response, falling back to a bare 500 when the
// response itself fails to serialize.
func Render(w http.ResponseWriter, r *http.Request, resp Response) {
	if err := resp.Render(w, r); err != nil {
		http.Error(w, "internal_error", http.StatusInternalServerError)
	}
}
