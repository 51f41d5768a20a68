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

//go:build !integration

package httperror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew tests construction with standard titles
func TestNew(t *testing.T) {
	t.Parallel()

	e := New(http.StatusBadRequest, "missing id")

	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, "Bad Request", e.Title, "Title should come from the standard status text")
	assert.Equal(t, "missing id", e.Detail)
	assert.Equal(t, "400 Bad Request: missing id", e.Error())
}

// TestConstructors tests the canned status constructors
func TestConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    *Error
		status int
		text   string
	}{
		{"not found", NotFound(), http.StatusNotFound, "404 Not Found"},
		{"method not allowed", MethodNotAllowed(), http.StatusMethodNotAllowed, "405 Method Not Allowed"},
		{"not implemented", NotImplemented(), http.StatusNotImplemented, "501 Not Implemented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.status, tt.err.Status)
			assert.Equal(t, tt.text, tt.err.Error())
		})
	}
}

// TestWriteJSON tests problem document serialization
func TestWriteJSON(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	e := New(http.StatusNotFound, "no such book")
	e.Instance = "/books/9"

	require.NoError(t, e.WriteJSON(w))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json; charset=utf-8", w.Header().Get("Content-Type"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "Not Found", payload["title"])
	assert.Equal(t, float64(http.StatusNotFound), payload["status"])
	assert.Equal(t, "no such book", payload["detail"])
	assert.Equal(t, "/books/9", payload["instance"])
	assert.NotContains(t, payload, "type", "Empty type should be omitted")
}

// TestFromError tests extraction through wrapped chains
func TestFromError(t *testing.T) {
	t.Parallel()

	base := MethodNotAllowed()
	wrapped := fmt.Errorf("dispatch: %w", base)

	got, ok := FromError(wrapped)
	require.True(t, ok, "Expected to find the problem error in the chain")
	assert.Same(t, base, got)

	_, ok = FromError(fmt.Errorf("plain failure"))
	assert.False(t, ok, "Plain errors should not extract")

	_, ok = FromError(nil)
	assert.False(t, ok, "Nil should not extract")
}
