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

// Package compiler turns path templates into matchable, reversible
// patterns for the Cascade router.
//
// A template mixes literal text, named parameters, and raw regular
// expression groups:
//
//	/users/all              literal
//	/users/:id              one segment captured as "id"
//	/items/:id(\d+)         digit-constrained capture
//	/files/:name?           optional segment
//	/proxy/(.*)             positional capture named "0"
//
// Compile produces a Pattern offering three views of the template:
//
//   - Match reports whether a path satisfies it;
//   - Captures extracts the raw parameter substrings in declaration order;
//   - Render substitutes values back into the template, producing a path.
//
// Rendering is deliberately lenient: a parameter without a value survives
// as a literal ":name" token instead of failing, which allows partially
// filled templates to be composed further before use.
//
// # Matching Options
//
// Options follow common routing conventions: matching is case-insensitive
// and tolerates a trailing slash unless Sensitive or Strict is set, and
// patterns are anchored at the end of the path unless End is explicitly
// false, in which case they match any path they are a prefix of, with the
// boundary falling on a slash. Prefix patterns are what middleware mounts
// compile to.
//
// Patterns are immutable and safe for concurrent use by multiple
// goroutines.
package compiler
