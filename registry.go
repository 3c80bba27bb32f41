// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package reqx

import (
	"sort"
	"sync"
)

// A registry holds the plugins installed in a Client, deduplicated by
// name, and caches the per-stage dispatch lists compiled from them.
//
// A compiled pipeline is never modified once built. Installing a plugin
// discards the cached pipeline, so attempts created earlier keep the
// pipeline they started with.
type registry struct {
	lock     sync.Mutex
	entries  []entry
	seq      int
	compiled *pipeline
}

type entry struct {
	plugin Plugin
	index  int
}

func (r *registry) use(p Plugin) {
	if p.Name == "" {
		panic("reqx: plugin has no name")
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	entries := make([]entry, 0, len(r.entries)+1)
	for _, e := range r.entries {
		if e.plugin.Name != p.Name {
			entries = append(entries, e)
		}
	}
	entries = append(entries, entry{plugin: p, index: r.seq})
	r.seq++
	r.entries = entries
	r.compiled = nil
}

func (r *registry) plugins() []Plugin {
	r.lock.Lock()
	defer r.lock.Unlock()

	ps := make([]Plugin, len(r.entries))
	for i := range r.entries {
		ps[i] = r.entries[i].plugin
	}
	return ps
}

func (r *registry) pipeline() *pipeline {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.compiled == nil {
		r.compiled = compile(r.entries)
	}
	return r.compiled
}

func compile(entries []entry) *pipeline {
	sorted := make([]entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := &sorted[i], &sorted[j]
		if a.plugin.Priority != b.plugin.Priority {
			return a.plugin.Priority < b.plugin.Priority
		}
		return a.index < b.index
	})

	p := &pipeline{}
	for i := range sorted {
		plugin := &sorted[i].plugin
		for _, s := range Stages() {
			if plugin.handles(s) {
				p.names[s] = append(p.names[s], plugin.Name)
			}
		}
		if plugin.BeforeRequest != nil {
			p.beforeRequest = append(p.beforeRequest, plugin.BeforeRequest)
		}
		if plugin.BeforeStream != nil {
			p.beforeStream = append(p.beforeStream, plugin.BeforeStream)
		}
		if plugin.TransformStreamChunk != nil {
			p.transformStreamChunk = append(p.transformStreamChunk, plugin.TransformStreamChunk)
		}
		if plugin.AfterResponse != nil {
			p.afterResponse = append(p.afterResponse, plugin.AfterResponse)
		}
		if plugin.OnError != nil {
			p.onError = append(p.onError, plugin.OnError)
		}
		if plugin.OnFinally != nil {
			p.onFinally = append(p.onFinally, plugin.OnFinally)
		}
	}
	return p
}
