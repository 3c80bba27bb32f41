// Copyright 2021 The reqx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dedupe

import (
	"fmt"
	"io"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/gogama/reqx"
	"github.com/gogama/reqx/request"
)

// PluginName is the name under which Guard.Plugin installs itself.
const PluginName = "dedupe"

// PluginPriority runs the guard's BeforeRequest handler ahead of
// handlers of the default priority, so that the signature is computed
// over the configuration the caller asked for.
const PluginPriority = -100

// A Signer computes the signature of a request configuration.
type Signer func(c *request.Config) (uint64, error)

// A Guard tracks the signatures of in-flight requests. The zero value
// is ready to use and signs requests with Signature.
//
// A Guard may be shared by several clients, in which case identical
// requests are deduplicated across all of them.
type Guard struct {
	// Signer computes request signatures. If nil, Signature is used.
	Signer Signer

	lock     sync.Mutex
	inflight map[uint64]*holder
}

// holder records which lineage holds a signature, and how many of its
// attempts do.
type holder struct {
	lineage string
	refs    int
}

type sigKey struct{}

// New returns a new Guard which signs requests with Signature.
func New() *Guard {
	return &Guard{}
}

// Plugin returns a reqx.Plugin backed by g.
func (g *Guard) Plugin() reqx.Plugin {
	return reqx.Plugin{
		Name:          PluginName,
		Priority:      PluginPriority,
		BeforeRequest: g.acquire,
		OnFinally:     g.release,
	}
}

// InFlight returns the number of distinct signatures currently held.
func (g *Guard) InFlight() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return len(g.inflight)
}

func (g *Guard) acquire(e *request.Execution, c *request.Config) (*request.Config, error) {
	sign := g.Signer
	if sign == nil {
		sign = Signature
	}
	sig, err := sign(c)
	if err != nil {
		return nil, fmt.Errorf("reqx/dedupe: sign request: %w", err)
	}

	g.lock.Lock()
	defer g.lock.Unlock()
	if g.inflight == nil {
		g.inflight = make(map[uint64]*holder)
	}
	h := g.inflight[sig]
	switch {
	case h == nil:
		g.inflight[sig] = &holder{lineage: e.Lineage, refs: 1}
	case h.lineage == e.Lineage:
		h.refs++
	default:
		return nil, &reqx.ResponseError{
			Kind:    reqx.KindDedupe,
			Message: fmt.Sprintf("identical request in flight (lineage %s)", h.lineage),
			Config:  c,
		}
	}
	e.SetValue(sigKey{}, sig)
	return c, nil
}

func (g *Guard) release(e *request.Execution) error {
	sig, ok := e.Value(sigKey{}).(uint64)
	if !ok {
		return nil
	}

	g.lock.Lock()
	defer g.lock.Unlock()
	h := g.inflight[sig]
	if h == nil || h.lineage != e.Lineage {
		return fmt.Errorf("reqx/dedupe: signature %x not held by lineage %s", sig, e.Lineage)
	}
	h.refs--
	if h.refs == 0 {
		delete(g.inflight, sig)
	}
	return nil
}

// Signature returns the xxhash digest of the request's method, resolved
// URL, and body. A body given as an io.Reader is not read: it is
// identified by the reader's address, so two requests streaming bodies
// from different readers are never identical.
func Signature(c *request.Config) (uint64, error) {
	u, err := c.ResolveURL()
	if err != nil {
		return 0, err
	}
	method := c.Method
	if method == "" {
		method = "GET"
	}

	d := xxhash.New()
	_, _ = d.WriteString(method)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(u.String())
	_, _ = d.WriteString("\x00")
	if r, ok := c.Body.(io.Reader); ok {
		_, _ = fmt.Fprintf(d, "%p", r)
	} else {
		b, _, err := request.BodyBytes(c.Body)
		if err != nil {
			return 0, err
		}
		_, _ = d.Write(b)
	}
	return d.Sum64(), nil
}
