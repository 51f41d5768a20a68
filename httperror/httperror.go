// Copyright 2026 The Cascade Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is an error value carrying RFC 9457 problem detail fields. The
// router's allowed-methods middleware produces Error values in throw mode,
// and the serving layer maps the first recorded Error to the response
// status.
type Error struct {
	// Status is the HTTP status code this error maps to.
	Status int `json:"status"`

	// Title is a short, human-readable summary. Constructors default it to
	// the standard status text.
	Title string `json:"title"`

	// Detail is an occurrence-specific explanation.
	Detail string `json:"detail,omitempty"`

	// Type is a URI identifying the problem type. Empty means the RFC
	// default "about:blank".
	Type string `json:"type,omitempty"`

	// Instance identifies the specific occurrence, usually the request
	// path.
	Instance string `json:"instance,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

// New creates an Error for the given status code. The title is derived from
// the standard status text; detail may be empty.
func New(status int, detail string) *Error {
	return &Error{
		Status: status,
		Title:  http.StatusText(status),
		Detail: detail,
	}
}

// NotFound returns a 404 error.
func NotFound() *Error {
	return New(http.StatusNotFound, "")
}

// MethodNotAllowed returns a 405 error.
func MethodNotAllowed() *Error {
	return New(http.StatusMethodNotAllowed, "")
}

// NotImplemented returns a 501 error.
func NotImplemented() *Error {
	return New(http.StatusNotImplemented, "")
}

// WriteJSON writes the error as an RFC 9457 problem document. The response
// status is taken from the error and the content type is
// "application/problem+json".
func (e *Error) WriteJSON(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/problem+json; charset=utf-8")
	w.WriteHeader(e.Status)
	return json.NewEncoder(w).Encode(e)
}

// FromError extracts an *Error from err's chain. It reports false when the
// chain carries no *Error.
func FromError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
