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

package accesslog

import (
	"hash/fnv"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"cascade.dev/router"
)

// Option defines functional options for accesslog middleware configuration.
type Option func(*config)

// config holds the configuration for the accesslog middleware.
type config struct {
	// logger receives the access records; nil falls back to the request
	// logger from the context
	logger *slog.Logger

	// excludePaths are exact paths that are never logged
	excludePaths map[string]struct{}

	// excludePrefixes are path prefixes that are never logged
	excludePrefixes []string

	// slowThreshold marks requests at or above it as slow; 0 disables
	slowThreshold time.Duration

	// errorsOnly restricts logging to error and slow requests
	errorsOnly bool

	// sampleRate is the fraction of successful requests that are logged
	sampleRate float64

	// requestIDFunc extracts the correlation ID used for log fields and
	// the sampling decision
	requestIDFunc func(c *router.Context) string

	// trustedProxies are networks whose forwarding headers are believed
	trustedProxies []*net.IPNet
}

func defaultConfig() *config {
	return &config{
		excludePaths: make(map[string]struct{}),
		sampleRate:   1.0,
		requestIDFunc: func(c *router.Context) string {
			return c.Request.Header.Get("X-Request-ID")
		},
	}
}

// New returns a middleware that writes one structured log record per
// request: method, path, route pattern, status, duration, response size,
// client IP and correlation IDs. Records go to the configured logger, or
// to the request logger when none is set.
//
// Responses under 400 log at info, 4xx at warn, 5xx at error. Requests
// slower than the slow threshold are raised to at least warn.
//
// Basic usage:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
//	r := router.MustNew()
//	r.Use(accesslog.New(accesslog.WithLogger(logger)))
//
// Excluding health probes:
//
//	r.Use(accesslog.New(
//	    accesslog.WithLogger(logger),
//	    accesslog.WithExcludePaths("/health", "/metrics"),
//	))
//
// Sampling high-volume success traffic while keeping every error:
//
//	r.Use(accesslog.New(
//	    accesslog.WithLogger(logger),
//	    accesslog.WithSampleRate(0.1),
//	))
func New(opts ...Option) router.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *router.Context) {
		if cfg.excluded(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status, size := responseInfo(c)
		isError := status >= http.StatusBadRequest
		isSlow := cfg.slowThreshold > 0 && duration >= cfg.slowThreshold

		// Errors and slow requests always log; sampling only thins
		// healthy traffic.
		if cfg.errorsOnly && !isError && !isSlow {
			return
		}
		requestID := cfg.requestIDFunc(c)
		if !isError && !isSlow && !cfg.sampled(requestID) {
			return
		}

		logger := cfg.logger
		if logger == nil {
			logger = c.Logger()
		}

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", duration.Milliseconds(),
			"bytes_sent", size,
			"user_agent", c.Request.UserAgent(),
			"client_ip", cfg.clientIP(c.Request),
			"host", c.Request.Host,
			"proto", c.Request.Proto,
		}

		if route := c.MatchedPath(); route != "" {
			fields = append(fields, "route", route)
		}
		if requestID != "" {
			fields = append(fields, "request_id", requestID)
		}
		if traceID := c.TraceID(); traceID != "" {
			fields = append(fields, "trace_id", traceID)
		}
		if isSlow {
			fields = append(fields, "slow", true)
		}

		ctx := c.RequestContext()
		switch {
		case status >= http.StatusInternalServerError:
			logger.ErrorContext(ctx, "http request", fields...)
		case isError || isSlow:
			logger.WarnContext(ctx, "http request", fields...)
		default:
			logger.InfoContext(ctx, "http request", fields...)
		}
	}
}

// responseInfo reads status and size from the router's response wrapper.
func responseInfo(c *router.Context) (int, int64) {
	if ri, ok := c.Response.(router.ResponseInfo); ok {
		return ri.StatusCode(), ri.Size()
	}
	return http.StatusOK, 0
}

// excluded reports whether path is filtered from logging.
func (cfg *config) excluded(path string) bool {
	if _, ok := cfg.excludePaths[path]; ok {
		return true
	}
	for _, prefix := range cfg.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// sampled decides whether a healthy request is logged. The decision is
// deterministic per request ID, so every hop of a distributed call either
// logs the request or none do.
func (cfg *config) sampled(requestID string) bool {
	if cfg.sampleRate >= 1 {
		return true
	}
	if cfg.sampleRate <= 0 {
		return false
	}
	if requestID == "" {
		return rand.Float64() < cfg.sampleRate
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(requestID))
	return float64(h.Sum32())/float64(math.MaxUint32) < cfg.sampleRate
}

// clientIP resolves the real client address. Forwarding headers are only
// consulted when the direct peer is a trusted proxy.
func (cfg *config) clientIP(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	if len(cfg.trustedProxies) == 0 {
		return host
	}
	peer := net.ParseIP(host)
	if peer == nil || !cfg.trustedPeer(peer) {
		return host
	}

	if xff := req.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if realIP := req.Header.Get("X-Real-IP"); realIP != "" && net.ParseIP(realIP) != nil {
		return realIP
	}

	return host
}

func (cfg *config) trustedPeer(ip net.IP) bool {
	for _, network := range cfg.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// WithLogger sets the logger receiving access records. Without it the
// middleware logs through the request logger from the context.
//
// Example:
//
//	accesslog.New(accesslog.WithLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))))
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithExcludePaths excludes exact request paths from logging, typically
// health probes and scrape endpoints.
//
// Example:
//
//	accesslog.New(accesslog.WithExcludePaths("/health", "/metrics"))
func WithExcludePaths(paths ...string) Option {
	return func(cfg *config) {
		for _, p := range paths {
			cfg.excludePaths[p] = struct{}{}
		}
	}
}

// WithExcludePrefixes excludes request paths by prefix.
//
// Example:
//
//	accesslog.New(accesslog.WithExcludePrefixes("/debug"))
func WithExcludePrefixes(prefixes ...string) Option {
	return func(cfg *config) {
		cfg.excludePrefixes = append(cfg.excludePrefixes, prefixes...)
	}
}

// WithSlowThreshold marks requests taking at least d as slow. Slow
// requests log at warn even when sampled out or in errors-only mode.
//
// Example:
//
//	accesslog.New(accesslog.WithSlowThreshold(500 * time.Millisecond))
func WithSlowThreshold(d time.Duration) Option {
	return func(cfg *config) {
		cfg.slowThreshold = d
	}
}

// WithErrorsOnly restricts logging to error responses and slow requests.
//
// Example:
//
//	accesslog.New(accesslog.WithErrorsOnly())
func WithErrorsOnly() Option {
	return func(cfg *config) {
		cfg.errorsOnly = true
	}
}

// WithSampleRate logs only the given fraction of successful requests.
// Errors and slow requests always log. The rate is clamped to [0, 1].
//
// Example:
//
//	accesslog.New(accesslog.WithSampleRate(0.1)) // 10% of healthy traffic
func WithSampleRate(rate float64) Option {
	return func(cfg *config) {
		cfg.sampleRate = math.Max(0, math.Min(1, rate))
	}
}

// WithRequestIDFunc sets how the correlation ID is extracted. The default
// reads the X-Request-ID request header.
//
// Example:
//
//	accesslog.New(accesslog.WithRequestIDFunc(func(c *router.Context) string {
//	    return requestid.Get(c)
//	}))
func WithRequestIDFunc(fn func(c *router.Context) string) Option {
	return func(cfg *config) {
		if fn != nil {
			cfg.requestIDFunc = fn
		}
	}
}

// WithTrustedProxies names the networks whose X-Forwarded-For and
// X-Real-IP headers are trusted for client IP resolution. Entries are
// CIDR blocks or single addresses. Without trusted proxies the client IP
// is always the direct peer.
//
// Example:
//
//	accesslog.New(accesslog.WithTrustedProxies("10.0.0.0/8", "192.168.0.0/16"))
func WithTrustedProxies(networks ...string) Option {
	return func(cfg *config) {
		for _, entry := range networks {
			if _, network, err := net.ParseCIDR(entry); err == nil {
				cfg.trustedProxies = append(cfg.trustedProxies, network)
				continue
			}
			if ip := net.ParseIP(entry); ip != nil {
				bits := 32
				if ip.To4() == nil {
					bits = 128
				}
				cfg.trustedProxies = append(cfg.trustedProxies, &net.IPNet{
					IP:   ip,
					Mask: net.CIDRMask(bits, bits),
				})
			}
		}
	}
}
