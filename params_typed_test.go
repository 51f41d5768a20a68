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

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramContext(key, value string) *Context {
	c := newBareContext("/")
	if key != "" {
		c.SetParam(key, value)
	}
	return c
}

func TestParamInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    int
		wantErr error
	}{
		{name: "positive", value: "42", want: 42},
		{name: "negative", value: "-7", want: -7},
		{name: "zero", value: "0", want: 0},
		{name: "not a number", value: "abc", wantErr: ErrParamInvalid},
		{name: "float rejected", value: "4.2", wantErr: ErrParamInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := paramContext("id", tt.value)

			got, err := c.ParamInt("id")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("missing", func(t *testing.T) {
		t.Parallel()
		c := newBareContext("/")

		_, err := c.ParamInt("id")
		assert.ErrorIs(t, err, ErrParamMissing)
		assert.Contains(t, err.Error(), "id")
	})
}

func TestParamInt64(t *testing.T) {
	t.Parallel()

	c := paramContext("seq", "9223372036854775807")
	got, err := c.ParamInt64("seq")
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775807), got)

	c = paramContext("seq", "9223372036854775808")
	_, err = c.ParamInt64("seq")
	assert.ErrorIs(t, err, ErrParamInvalid, "Overflow is a parse failure")

	_, err = newBareContext("/").ParamInt64("seq")
	assert.ErrorIs(t, err, ErrParamMissing)
}

func TestParamFloat64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    float64
		wantErr error
	}{
		{name: "decimal", value: "3.14", want: 3.14},
		{name: "negative", value: "-0.5", want: -0.5},
		{name: "integer form", value: "10", want: 10},
		{name: "not a number", value: "fast", wantErr: ErrParamInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := paramContext("ratio", tt.value)

			got, err := c.ParamFloat64("ratio")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestParamEnum(t *testing.T) {
	t.Parallel()

	c := paramContext("format", "json")
	got, err := c.ParamEnum("format", "json", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "json", got)

	c = paramContext("format", "xml")
	_, err = c.ParamEnum("format", "json", "yaml")
	assert.ErrorIs(t, err, ErrParamInvalid)
	assert.Contains(t, err.Error(), `value "xml" not in allowed list`)

	_, err = newBareContext("/").ParamEnum("format", "json")
	assert.ErrorIs(t, err, ErrParamMissing)
}

func TestQueryInt(t *testing.T) {
	t.Parallel()

	c := newBareContext("/list?page=3&bad=abc")

	assert.Equal(t, 3, c.QueryInt("page", 1))
	assert.Equal(t, 1, c.QueryInt("missing", 1), "Absent keys fall back to the default")
	assert.Equal(t, 10, c.QueryInt("bad", 10), "Unparseable values fall back to the default")
}

func TestQueryBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		def   bool
		want  bool
	}{
		{name: "true", value: "true", want: true},
		{name: "one", value: "1", want: true},
		{name: "yes", value: "yes", want: true},
		{name: "on", value: "on", want: true},
		{name: "mixed case", value: "TRUE", want: true},
		{name: "padded", value: "+on+", want: true},
		{name: "false", value: "false", def: true, want: false},
		{name: "zero", value: "0", def: true, want: false},
		{name: "no", value: "no", def: true, want: false},
		{name: "off", value: "off", def: true, want: false},
		{name: "garbage keeps default true", value: "maybe", def: true, want: true},
		{name: "garbage keeps default false", value: "maybe", def: false, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newBareContext("/flags?verbose=" + tt.value)
			assert.Equal(t, tt.want, c.QueryBool("verbose", tt.def))
		})
	}

	t.Run("missing keeps default", func(t *testing.T) {
		t.Parallel()
		c := newBareContext("/flags")
		assert.True(t, c.QueryBool("verbose", true))
		assert.False(t, c.QueryBool("verbose", false))
	})
}

func TestQueryStrings(t *testing.T) {
	t.Parallel()

	c := newBareContext("/search?tags=go,+rust,,python")
	assert.Equal(t, []string{"go", "rust", "python"}, c.QueryStrings("tags"),
		"Values are trimmed and empty entries dropped")

	c = newBareContext("/search?tags=go")
	assert.Equal(t, []string{"go"}, c.QueryStrings("tags"))

	c = newBareContext("/search")
	assert.Nil(t, c.QueryStrings("tags"), "An absent key yields nil")

	c = newBareContext("/search?tags=,,")
	assert.Empty(t, c.QueryStrings("tags"))
}
