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

// Package semconv defines the structured-log attribute keys shared across
// the module. The names follow OpenTelemetry semantic conventions, so log
// aggregators that understand those conventions pick the fields up without
// per-service mapping rules.
//
// Use the constants instead of string literals when building loggers:
//
//	logger := slog.Default().With(
//	    semconv.ServiceName, "checkout",
//	    semconv.DeploymentEnviron, "production",
//	)
package semconv

// Service metadata keys. Set once at logger construction, not per request.
const (
	// ServiceName identifies the logical service emitting the telemetry.
	ServiceName = "service.name"

	// ServiceVersion is the version string of the running service instance.
	ServiceVersion = "service.version"

	// DeploymentEnviron names the deployment environment, such as
	// "production", "staging" or "development".
	DeploymentEnviron = "deployment.environment"
)

// HTTP request and response keys, attached per request.
const (
	// HTTPMethod is the request method ("GET", "POST", ...).
	HTTPMethod = "http.method"

	// HTTPRoute is the matched route template ("/orders/:id"), never the
	// concrete path. Aggregating by route keeps cardinality bounded.
	HTTPRoute = "http.route"

	// HTTPTarget is the concrete path requested ("/orders/42").
	HTTPTarget = "http.target"

	// HTTPStatusCode is the numeric response status.
	HTTPStatusCode = "http.status_code"
)

// Network keys.
const (
	// NetworkPeerIP is the socket-level peer address, which behind a proxy
	// is the proxy rather than the client.
	NetworkPeerIP = "network.peer.ip"

	// NetworkClientIP is the resolved client address.
	NetworkClientIP = "network.client.ip"
)

// Trace correlation keys. These let log pipelines join log lines to spans.
const (
	// TraceID identifies the distributed trace the log line belongs to.
	TraceID = "trace_id"

	// SpanID identifies the span active when the line was written.
	SpanID = "span_id"
)

// Request correlation keys.
const (
	// RequestID carries the per-request identifier, usually taken from or
	// echoed into the X-Request-ID header.
	RequestID = "req.id"
)
