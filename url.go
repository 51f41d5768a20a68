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

package router

import (
	"fmt"
	"net/url"
	"strings"

	"cascade.dev/router/compiler"
)

// urlConfig collects the options applied to one URL generation.
type urlConfig struct {
	query       url.Values
	queryString string
}

// URLOption customizes URL generation.
type URLOption func(*urlConfig)

// WithQuery appends values as a query string. Multi-valued keys are
// repeated, not comma-joined, and keys are encoded in sorted order.
//
// Example:
//
//	u, _ := r.URL("books", map[string]string{"category": "programming"},
//	    router.WithQuery(url.Values{"page": {"3"}}))
//	// "/programming?page=3"
func WithQuery(values url.Values) URLOption {
	return func(cfg *urlConfig) {
		cfg.query = values
	}
}

// WithQueryString appends a pre-encoded query string verbatim. A leading
// "?" is tolerated. It takes precedence over WithQuery when both are
// given.
func WithQueryString(raw string) URLOption {
	return func(cfg *urlConfig) {
		cfg.queryString = strings.TrimPrefix(raw, "?")
	}
}

// renderURL renders params into a reverse template and appends any
// configured query string. Bare regexp groups must be supplied a value
// under their positional key; named parameters may be omitted and stay in
// the output as literal placeholders.
func renderURL(rp *compiler.Pattern, params map[string]string, opts []URLOption) (string, error) {
	if !rp.Reversible() {
		for _, name := range rp.Names() {
			if name == "" || name[0] < '0' || name[0] > '9' {
				continue
			}
			if _, ok := params[name]; !ok {
				return "", fmt.Errorf("%w: no value for group %s in %q", ErrNotReversible, name, rp.Template())
			}
		}
	}

	rendered := rp.Render(params)

	var cfg urlConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	switch {
	case cfg.queryString != "":
		return rendered + "?" + cfg.queryString, nil
	case len(cfg.query) > 0:
		return rendered + "?" + cfg.query.Encode(), nil
	}

	return rendered, nil
}

// BuildURL renders a path template directly, with no router or layer
// involved. Catch-all "(.*)" markers are stripped, values are
// percent-encoded, and default matching options apply.
//
// Example:
//
//	u, _ := router.BuildURL("/users/:id", map[string]string{"id": "7"})
//	// "/users/7"
func BuildURL(template string, params map[string]string, opts ...URLOption) (string, error) {
	stripped := strings.ReplaceAll(template, "(.*)", "")
	rp, err := compiler.Compile(stripped, compiler.Options{})
	if err != nil {
		return "", &PatternError{Template: stripped, Err: err}
	}

	return renderURL(rp, params, opts)
}
