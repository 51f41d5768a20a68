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

package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolp(b bool) *bool {
	return &b
}

// TestCompile_Names tests parameter name extraction order
func TestCompile_Names(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{
			name:     "no parameters",
			template: "/users/all",
			want:     nil,
		},
		{
			name:     "single parameter",
			template: "/users/:id",
			want:     []string{"id"},
		},
		{
			name:     "multiple parameters in order",
			template: "/:a/:b/:c/:d",
			want:     []string{"a", "b", "c", "d"},
		},
		{
			name:     "custom expression keeps name",
			template: `/items/:id(\d+)`,
			want:     []string{"id"},
		},
		{
			name:     "positional group",
			template: "/proxy/(.*)",
			want:     []string{"0"},
		},
		{
			name:     "mixed named and positional",
			template: `/u/:id/(\d+)/(.*)`,
			want:     []string{"id", "0", "1"},
		},
		{
			name:     "optional parameter",
			template: "/files/:name?",
			want:     []string{"name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := Compile(tt.template, Options{})
			require.NoError(t, err, "Compile should accept %q", tt.template)
			if tt.want == nil {
				assert.Empty(t, p.Names(), "Expected no parameter names")
			} else {
				assert.Equal(t, tt.want, p.Names(), "Parameter names should follow template order")
			}
		})
	}
}

// TestPattern_Match tests path matching under default options
func TestPattern_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		path     string
		want     bool
	}{
		{"literal exact", "/users/all", "/users/all", true},
		{"literal trailing slash tolerated", "/users/all", "/users/all/", true},
		{"literal case-insensitive", "/users/all", "/Users/All", true},
		{"literal mismatch", "/users/all", "/users/some", false},
		{"literal longer path rejected", "/users", "/users/all", false},
		{"parameter matches one segment", "/users/:id", "/users/42", true},
		{"parameter rejects extra segment", "/users/:id", "/users/42/posts", false},
		{"parameter rejects empty segment", "/users/:id", "/users/", false},
		{"custom expression accepts digits", `/items/:id(\d+)`, "/items/17", true},
		{"custom expression rejects letters", `/items/:id(\d+)`, "/items/abc", false},
		{"optional present", "/files/:name?", "/files/report", true},
		{"optional absent", "/files/:name?", "/files", true},
		{"catch-all group", "(.*)", "/anything/at/all", true},
		{"catch-all group empty path", "(.*)", "", true},
		{"trailing group needs separator", "/user/(.*)", "/user", false},
		{"trailing group with value", "/user/(.*)", "/user/abc/def", true},
		{"root template", "/", "/", true},
		{"empty template matches root", "", "/", true},
		{"adjacent parameters split in segment", "/:from-:to", "/a-b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := MustCompile(tt.template, Options{})
			assert.Equal(t, tt.want, p.Match(tt.path), "Match(%q) against %q", tt.path, tt.template)
		})
	}
}

// TestPattern_MatchOptions tests sensitive, strict, and prefix behavior
func TestPattern_MatchOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		opts     Options
		path     string
		want     bool
	}{
		{"sensitive exact case", "/Users", Options{Sensitive: true}, "/Users", true},
		{"sensitive wrong case", "/Users", Options{Sensitive: true}, "/users", false},
		{"strict forbids trailing slash", "/foo", Options{Strict: true}, "/foo/", false},
		{"strict accepts exact", "/foo", Options{Strict: true}, "/foo", true},
		{"strict requires declared slash", "/foo/", Options{Strict: true}, "/foo", false},
		{"strict with declared slash", "/foo/", Options{Strict: true}, "/foo/", true},
		{"prefix matches itself", "/admin", Options{End: boolp(false)}, "/admin", true},
		{"prefix matches below", "/admin", Options{End: boolp(false)}, "/admin/users/7", true},
		{"prefix respects boundary", "/admin", Options{End: boolp(false)}, "/administrator", false},
		{"prefix with trailing slash in path", "/admin", Options{End: boolp(false)}, "/admin/", true},
		{"prefix parameter still bound to segment", "/u/:id", Options{End: boolp(false)}, "/u/9/posts", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := MustCompile(tt.template, tt.opts)
			assert.Equal(t, tt.want, p.Match(tt.path), "Match(%q) against %q", tt.path, tt.template)
		})
	}
}

// TestPattern_Captures tests raw capture extraction
func TestPattern_Captures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		opts     Options
		path     string
		want     []string
		matched  bool
	}{
		{
			name:     "single segment",
			template: "/users/:id",
			path:     "/users/42",
			want:     []string{"42"},
			matched:  true,
		},
		{
			name:     "two segments in order",
			template: "/:category/:title",
			path:     "/programming/how%20to%20node",
			want:     []string{"programming", "how%20to%20node"},
			matched:  true,
		},
		{
			name:     "optional absent yields empty",
			template: "/files/:name?",
			path:     "/files",
			want:     []string{""},
			matched:  true,
		},
		{
			name:     "positional capture",
			template: "/user/(.*)",
			path:     "/user/a/b",
			want:     []string{"a/b"},
			matched:  true,
		},
		{
			name:     "no match",
			template: "/users/:id",
			path:     "/posts/42",
			want:     nil,
			matched:  false,
		},
		{
			name:     "prefix match captures segment only",
			template: "/u/:id",
			opts:     Options{End: boolp(false)},
			path:     "/u/alice/posts",
			want:     []string{"alice"},
			matched:  true,
		},
		{
			name:     "adjacent parameters split at first delimiter",
			template: "/:from-:to",
			path:     "/a-b-c",
			want:     []string{"a", "b-c"},
			matched:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := MustCompile(tt.template, tt.opts)
			got, ok := p.Captures(tt.path)
			require.Equal(t, tt.matched, ok, "Captures(%q) match flag", tt.path)
			assert.Equal(t, tt.want, got, "Captured values should align with Names")
		})
	}
}

// TestPattern_CapturesWithNestedGroups tests that a capturing group inside
// a custom expression does not shift parameter alignment
func TestPattern_CapturesWithNestedGroups(t *testing.T) {
	t.Parallel()

	p := MustCompile(`/v/:ver((\d+)\.(\d+))/:rest`, Options{})
	assert.Equal(t, []string{"ver", "rest"}, p.Names(), "Nested groups should not add names")

	got, ok := p.Captures("/v/1.2/extra")
	require.True(t, ok, "Expected path to match")
	assert.Equal(t, []string{"1.2", "extra"}, got, "Captures should skip nested submatches")
}

// TestPattern_Render tests reverse compilation
func TestPattern_Render(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		params   map[string]string
		want     string
	}{
		{
			name:     "full substitution",
			template: "/:category/:title",
			params:   map[string]string{"category": "programming", "title": "how to node"},
			want:     "/programming/how%20to%20node",
		},
		{
			name:     "missing value keeps placeholder",
			template: "/:category/:title",
			params:   map[string]string{"category": "programming"},
			want:     "/programming/:title",
		},
		{
			name:     "no values keeps template",
			template: "/users/:id",
			params:   nil,
			want:     "/users/:id",
		},
		{
			name:     "optional omitted without value",
			template: "/files/:name?",
			params:   nil,
			want:     "/files",
		},
		{
			name:     "optional rendered with value",
			template: "/files/:name?",
			params:   map[string]string{"name": "report"},
			want:     "/files/report",
		},
		{
			name:     "slash in value is encoded",
			template: "/proxy/:path",
			params:   map[string]string{"path": "a/b"},
			want:     "/proxy/a%2Fb",
		},
		{
			name:     "positional value by index",
			template: "/user/(.*)",
			params:   map[string]string{"0": "alice"},
			want:     "/user/alice",
		},
		{
			name:     "positional without value reproduces group",
			template: "/user/(.*)",
			params:   nil,
			want:     "/user/(.*)",
		},
		{
			name:     "custom expression renders plain name when missing",
			template: `/items/:id(\d+)`,
			params:   nil,
			want:     "/items/:id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := MustCompile(tt.template, Options{})
			assert.Equal(t, tt.want, p.Render(tt.params), "Render output for %q", tt.template)
		})
	}
}

// TestPattern_Reversible tests raw fragment detection
func TestPattern_Reversible(t *testing.T) {
	t.Parallel()

	assert.True(t, MustCompile("/users/:id", Options{}).Reversible(), "Named templates are reversible")
	assert.True(t, MustCompile("/users/all", Options{}).Reversible(), "Literal templates are reversible")
	assert.False(t, MustCompile("/user/(.*)", Options{}).Reversible(), "Positional groups are not reversible")
	assert.False(t, MustCompile("(.*)", Options{}).Reversible(), "Catch-all is not reversible")
}

// TestCompile_Errors tests fail-fast compilation
func TestCompile_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unterminated group", func(t *testing.T) {
		t.Parallel()

		_, err := Compile("/broken(", Options{})
		require.Error(t, err, "Expected an error for an unterminated group")
		assert.ErrorIs(t, err, ErrUnterminatedGroup)
	})

	t.Run("invalid custom expression", func(t *testing.T) {
		t.Parallel()

		_, err := Compile("/items/:id(a{2,1})", Options{})
		require.Error(t, err, "Expected the regexp engine rejection to surface")
	})

	t.Run("MustCompile panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			MustCompile("/broken(", Options{})
		}, "MustCompile should panic on a bad template")
	})
}

// TestPattern_MatchIsStateless tests that matching never mutates the pattern
func TestPattern_MatchIsStateless(t *testing.T) {
	t.Parallel()

	p := MustCompile("/users/:id", Options{})

	first, ok1 := p.Captures("/users/7")
	second, ok2 := p.Captures("/users/7")

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, first, second, "Repeated captures should be identical")
	assert.Equal(t, "/users/:id", p.Template(), "Template accessor should be stable")
}

// TestPattern_EscapedCharacters tests backslash escapes in templates
func TestPattern_EscapedCharacters(t *testing.T) {
	t.Parallel()

	p := MustCompile(`/literal\(paren\)`, Options{})
	assert.True(t, p.Match("/literal(paren)"), "Escaped parens should match literally")
	assert.Empty(t, p.Names(), "Escaped parens should not create captures")
	assert.Equal(t, "/literal(paren)", p.Render(nil), "Render should emit the unescaped text")
}
