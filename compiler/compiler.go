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

package compiler

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Template parsing and rendering errors.
var (
	// ErrUnterminatedGroup is returned when a '(' in a template has no
	// matching ')'.
	ErrUnterminatedGroup = errors.New("unterminated group")
)

// Options controls how a template is compiled. The zero value requests the
// default behavior: case-insensitive literal matching, an optional trailing
// slash, and a match anchored at the end of the path.
type Options struct {
	// Sensitive enables case-sensitive matching of literal segments.
	Sensitive bool

	// Strict requires the path to agree with the template about a trailing
	// slash. When false a trailing slash is always optional.
	Strict bool

	// End anchors the pattern at the end of the path. A nil End means true.
	// Setting End to false compiles a prefix pattern whose boundary must
	// fall at the end of the path or at a '/', which is how middleware
	// mounts match every path below them.
	End *bool
}

func (o Options) end() bool {
	return o.End == nil || *o.End
}

type tokenKind int

const (
	// tokenLiteral is verbatim template text, escaped before matching.
	tokenLiteral tokenKind = iota

	// tokenParam is a capturing token: a named ":name" parameter, a named
	// ":name(expr)" parameter with a custom expression, or a bare "(expr)"
	// group addressed by position.
	tokenParam

	// tokenVerbatim is a "(?...)" group passed through to the regexp engine
	// untouched. It captures nothing at the token level.
	tokenVerbatim
)

// token is one parsed unit of a template. Tokens carry enough of the
// original text to reverse the template in Render.
type token struct {
	kind     tokenKind
	text     string // literal text or verbatim group body
	name     string // parameter name; positional index for unnamed groups
	pattern  string // capture expression without the surrounding parens
	prefix   string // delimiter pulled from the preceding literal ("/" or ".")
	optional bool
	unnamed  bool
}

// Pattern is an immutable compiled template. A Pattern is safe for
// concurrent use: matching, capturing, and rendering never mutate it.
type Pattern struct {
	template string
	re       *regexp.Regexp
	tokens   []token
	names    []string
	groups   []int // submatch index per name, aligned with names
	raw      bool  // template contains unnamed capturing groups
}

// defaultParamPattern matches a single path segment. Non-greedy so that
// adjacent parameters inside one segment split at the earliest boundary.
const defaultParamPattern = "[^/]+?"

// Compile parses a path template and builds its matching pattern.
//
// Template syntax:
//   - literal text matches itself ("/users/all");
//   - ":name" matches one path segment and captures it under name;
//   - ":name(expr)" captures with a custom expression ("/items/:id(\\d+)");
//   - a '?' directly after a parameter or group makes it, along with its
//     leading delimiter, optional ("/files/:name?");
//   - a bare "(expr)" group captures positionally; positions are exposed as
//     the names "0", "1", ... in order of appearance;
//   - "\\x" escapes x into literal text.
//
// An empty template matches like "/" under non-strict options. Compilation
// fails fast: an unterminated group or an expression the regexp engine
// rejects is reported immediately, never at match time.
func Compile(template string, opts Options) (*Pattern, error) {
	tokens, err := parse(template)
	if err != nil {
		return nil, err
	}

	var (
		expr    strings.Builder
		names   []string
		groups  []int
		raw     bool
		unnamed int
	)
	group := 1
	for i := range tokens {
		tok := &tokens[i]
		switch tok.kind {
		case tokenLiteral:
			expr.WriteString(regexp.QuoteMeta(tok.text))
		case tokenVerbatim:
			expr.WriteString("(" + tok.text + ")")
			if tok.optional {
				expr.WriteString("?")
			}
			group += countCaptures(tok.text)
		case tokenParam:
			if tok.unnamed {
				tok.name = strconv.Itoa(unnamed)
				unnamed++
				raw = true
			}
			capture := regexp.QuoteMeta(tok.prefix) + "(" + tok.pattern + ")"
			if tok.optional {
				capture = "(?:" + capture + ")?"
			}
			expr.WriteString(capture)
			names = append(names, tok.name)
			groups = append(groups, group)
			group += 1 + countCaptures(tok.pattern)
		}
	}

	re, err := regexp.Compile(anchor(expr.String(), opts))
	if err != nil {
		return nil, fmt.Errorf("compile template %q: %w", template, err)
	}

	return &Pattern{
		template: template,
		re:       re,
		tokens:   tokens,
		names:    names,
		groups:   groups,
		raw:      raw,
	}, nil
}

// MustCompile is like Compile but panics on error. It simplifies safe
// initialization of global patterns.
func MustCompile(template string, opts Options) *Pattern {
	p, err := Compile(template, opts)
	if err != nil {
		panic(fmt.Sprintf("compiler.MustCompile(%q): %v", template, err))
	}
	return p
}

// anchor finishes the assembled expression according to the strictness and
// end options. The engine has no lookahead, so the prefix-match boundary
// (end of path or '/') is expressed as an optional "(?:/.*)?" tail instead
// of the usual "(?=/|$)".
func anchor(expr string, opts Options) string {
	switch {
	case opts.end() && !opts.Strict:
		expr = strings.TrimSuffix(expr, "/") + "/?$"
	case opts.end() && opts.Strict:
		expr += "$"
	case !opts.end() && opts.Strict && strings.HasSuffix(expr, "/"):
		expr += ".*$"
	default:
		expr = strings.TrimSuffix(expr, "/") + "(?:/.*)?$"
	}
	expr = "^" + expr
	if !opts.Sensitive {
		expr = "(?i)" + expr
	}
	return expr
}

// parse splits a template into literal, parameter, and verbatim tokens.
func parse(template string) ([]token, error) {
	var (
		tokens  []token
		literal strings.Builder
	)

	// flush appends the pending literal text, peeling off a trailing
	// delimiter to become the next token's prefix when asked.
	flush := func(pullPrefix bool) string {
		text := literal.String()
		literal.Reset()
		prefix := ""
		if pullPrefix && text != "" {
			if last := text[len(text)-1]; last == '/' || last == '.' {
				prefix = string(last)
				text = text[:len(text)-1]
			}
		}
		if text != "" {
			tokens = append(tokens, token{kind: tokenLiteral, text: text})
		}
		return prefix
	}

	i := 0
	for i < len(template) {
		c := template[i]
		switch {
		case c == '\\' && i+1 < len(template):
			literal.WriteByte(template[i+1])
			i += 2

		case c == ':' && i+1 < len(template) && isNameByte(template[i+1]):
			prefix := flush(true)
			j := i + 1
			for j < len(template) && isNameByte(template[j]) {
				j++
			}
			tok := token{
				kind:    tokenParam,
				name:    template[i+1 : j],
				pattern: defaultParamPattern,
				prefix:  prefix,
			}
			if j < len(template) && template[j] == '(' {
				body, next, err := readGroup(template, j)
				if err != nil {
					return nil, err
				}
				tok.pattern = body
				j = next
			}
			if j < len(template) && template[j] == '?' {
				tok.optional = true
				j++
			}
			tokens = append(tokens, tok)
			i = j

		case c == '(':
			body, next, err := readGroup(template, i)
			if err != nil {
				return nil, err
			}
			var tok token
			if strings.HasPrefix(body, "?") {
				// Flag and non-capturing groups pass through untouched,
				// keeping their delimiter in the literal text.
				flush(false)
				tok = token{kind: tokenVerbatim, text: body}
			} else {
				tok = token{kind: tokenParam, pattern: body, unnamed: true, prefix: flush(true)}
			}
			if next < len(template) && template[next] == '?' {
				tok.optional = true
				next++
			}
			tokens = append(tokens, tok)
			i = next

		default:
			literal.WriteByte(c)
			i++
		}
	}
	flush(false)
	return tokens, nil
}

// isNameByte reports whether b may appear in a parameter name.
func isNameByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// readGroup scans a balanced "(...)" starting at start and returns the body
// without the surrounding parens plus the offset just past the closing
// paren. Escapes and character classes are honored so "\\)" and "[)]" do
// not close the group.
func readGroup(s string, start int) (string, int, error) {
	depth := 0
	inClass := false
	for i := start; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return s[start+1 : i], i + 1, nil
			}
		}
	}
	return "", 0, fmt.Errorf("%w in %q at offset %d", ErrUnterminatedGroup, s, start)
}

// countCaptures counts the capturing groups inside a custom expression so
// parameter names stay aligned with submatch indexes even when a custom
// expression nests its own groups.
func countCaptures(s string) int {
	n := 0
	inClass := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			rest := s[i+1:]
			if !strings.HasPrefix(rest, "?") {
				n++
				continue
			}
			// (?P<name>...) and (?<name>...) capture despite the '?'.
			if strings.HasPrefix(rest, "?P<") || strings.HasPrefix(rest, "?<") {
				n++
			}
		}
	}
	return n
}

// Template returns the original template text.
func (p *Pattern) Template() string {
	return p.template
}

// Names returns the declared parameter names in left-to-right template
// order. Unnamed groups appear as their positional index ("0", "1", ...).
func (p *Pattern) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Reversible reports whether the template can be rendered back into a path
// from named values alone. Templates containing bare regexp groups are only
// renderable when a value is supplied for every positional group.
func (p *Pattern) Reversible() bool {
	return !p.raw
}

// Match reports whether path satisfies the pattern. It is side-effect-free.
func (p *Pattern) Match(path string) bool {
	return p.re.MatchString(path)
}

// Captures extracts the raw captured substrings for path, positionally
// aligned with Names. An optional parameter that did not participate in the
// match yields an empty string. The second result reports whether the path
// matched at all.
func (p *Pattern) Captures(path string) ([]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	out := make([]string, len(p.groups))
	for i, g := range p.groups {
		if g < len(m) {
			out[i] = m[g]
		}
	}
	return out, true
}

// Render substitutes params into the template and returns the resulting
// path. Values are percent-encoded. A named parameter with no value stays
// in the output as a literal ":name" token, and an optional parameter with
// no value is omitted along with its delimiter; Render never fails.
// Positional groups render from their numeric key ("0", "1", ...) when
// supplied and otherwise reproduce the original group text.
func (p *Pattern) Render(params map[string]string) string {
	var b strings.Builder
	for _, tok := range p.tokens {
		switch tok.kind {
		case tokenLiteral:
			b.WriteString(tok.text)
		case tokenVerbatim:
			b.WriteString("(" + tok.text + ")")
			if tok.optional {
				b.WriteString("?")
			}
		case tokenParam:
			value, ok := params[tok.name]
			switch {
			case ok:
				b.WriteString(tok.prefix)
				b.WriteString(url.PathEscape(value))
			case tok.optional:
				// Omitted together with its delimiter.
			case tok.unnamed:
				b.WriteString(tok.prefix)
				b.WriteString("(" + tok.pattern + ")")
			default:
				b.WriteString(tok.prefix)
				b.WriteString(":" + tok.name)
			}
		}
	}
	return b.String()
}
