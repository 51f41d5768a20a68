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

// Package httperror provides HTTP-mapped error values in the RFC 9457
// Problem Details shape (application/problem+json).
//
// An Error is both a Go error and a serializable problem document, so a
// handler can record it on the request context and let the serving layer
// decide the response:
//
//	if item == nil {
//		c.Error(httperror.New(http.StatusNotFound, "no such item"))
//		return
//	}
//
// The router's allowed-methods middleware uses the MethodNotAllowed and
// NotImplemented constructors for its throw mode, and the serving layer
// maps the first recorded *Error to the response status code.
package httperror
