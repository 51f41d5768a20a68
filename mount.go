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

import "strings"

// mountCfg holds configuration for a mounted subrouter.
type mountCfg struct {
	namePrefix string
}

// MountOption configures how a subrouter is mounted.
type MountOption func(*mountCfg)

// NamePrefix adds a prefix to all route names in the subrouter.
// Useful for keeping reverse-routing names and observability labels
// unambiguous when the same subrouter is mounted more than once.
//
// Example:
//
//	r.Mount("/admin", sub, router.NamePrefix("admin."))
//	// Route named "users" becomes "admin.users"
func NamePrefix(prefix string) MountOption {
	return func(cfg *mountCfg) {
		cfg.namePrefix = prefix
	}
}

// Mount absorbs a subrouter's layers at the given prefix. Every layer is
// copied, re-prefixed (mount prefix first, then this router's own
// prefix), given this router's declared parameter validators, and
// appended to this router's layer list in the subrouter's registration
// order. The full combined pattern survives, so observability sees
// "/admin/users/:id" rather than a catch-all, and prefix parameters like
// "/tenants/:tenant" bind into the request parameters.
//
// Layers are copied, not shared: registrations on either router after
// the mount do not leak into the other, and mounting the same subrouter
// twice under different prefixes yields independent layers. Mount the
// subrouter only once it is fully built.
//
// Example:
//
//	posts := router.MustNew()
//	posts.GET("/:pid", showPost)
//
//	r.Mount("/forums/:fid/posts", posts)
//	// GET /forums/1/posts/7 -> fid=1, pid=7
func (r *Router) Mount(prefix string, sub *Router, opts ...MountOption) {
	r.checkFrozen("Mount")
	if sub == nil {
		return
	}

	// Normalize prefix: strip a trailing slash, ensure a leading one.
	// Mounting at "" or "/" merges the layers with no prefix at all.
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" && prefix[0] != '/' {
		prefix = "/" + prefix
	}

	cfg := &mountCfg{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	for _, l := range sub.layers {
		copied := l.clone()
		copied.router = r
		if cfg.namePrefix != "" && copied.name != "" {
			copied.name = cfg.namePrefix + copied.name
		}
		if prefix != "" {
			copied.SetPrefix(prefix)
		}
		if r.prefix != "" {
			copied.SetPrefix(r.prefix)
		}
		for _, name := range r.paramOrder {
			copied.Param(name, r.params[name])
		}
		r.layers = append(r.layers, copied)
	}
}
