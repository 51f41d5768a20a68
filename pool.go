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

import "sync"

// Contexts are pooled across requests. The inline parameter arrays make a
// single pool sufficient: a recycled context costs the same regardless of
// how many parameters the previous request carried.
var globalContextPool = sync.Pool{
	New: func() any {
		return &Context{index: -1}
	},
}

// acquireContext retrieves a Context from the pool. The type assertion is
// checked so that pool corruption surfaces as a clear panic instead of an
// opaque one.
func acquireContext() *Context {
	c, ok := globalContextPool.Get().(*Context)
	if !ok {
		// This should never happen in normal operation. If it does, someone
		// Put() an incorrect type into the pool.
		panic("router: pool corruption - globalContextPool returned non-Context type")
	}
	return c
}

// releaseContext cleans up a context and returns it to the pool. Callers
// must not touch the context afterwards.
func releaseContext(c *Context) {
	c.reset()
	globalContextPool.Put(c)
}
