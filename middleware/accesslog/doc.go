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

// Package accesslog provides middleware for structured HTTP access logging
// with level mapping, path exclusion, and deterministic sampling.
//
// Each request produces one slog record carrying method, path, matched
// route pattern, status code, duration, response size, client IP, user
// agent, and the request and trace correlation IDs when present.
//
// # Basic Usage
//
//	import (
//	    "log/slog"
//	    "os"
//
//	    "cascade.dev/router/middleware/accesslog"
//	)
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r := router.MustNew()
//	r.Use(accesslog.New(
//	    accesslog.WithLogger(logger),
//	))
//
// # Level Mapping
//
// Responses below 400 log at info, 4xx at warn, 5xx at error. Requests
// slower than the configured threshold log at warn even on success.
//
// # Configuration Options
//
//   - [WithLogger]: structured logger for output (default: request logger)
//   - [WithExcludePaths], [WithExcludePrefixes]: paths never logged
//   - [WithSlowThreshold]: duration marking a request slow
//   - [WithErrorsOnly]: log only errors and slow requests
//   - [WithSampleRate]: fraction of healthy traffic to log
//   - [WithRequestIDFunc]: correlation ID extraction
//   - [WithTrustedProxies]: networks whose forwarding headers are trusted
//
// # Sampling
//
// Sampling decisions hash the request correlation ID, so retries and
// downstream hops carrying the same ID make the same decision. Errors and
// slow requests bypass sampling entirely.
//
// # Relation to the telemetry package
//
// The telemetry package's recorder also writes access logs, alongside
// metrics and traces. Use this middleware when you want request logging
// without wiring an observability recorder; use the recorder's logging
// when you already run one, and disable one of the two to avoid duplicate
// records.
package accesslog
