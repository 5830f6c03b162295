package blog

import (
	"context"
	"sync"
	"sync/atomic"
)

// lister is satisfied by *Service.
type lister interface {
	List(ctx context.Context, page, pageSize int) (Page, error)
}

// Pager serializes the outcome of racing page fetches. Each FetchPage call
// takes a fresh generation number; when its response arrives it only lands
// if no later fetch has started since. The last dispatched request wins,
// regardless of the order responses resolve in.
type Pager struct {
	svc lister
	gen atomic.Uint64

	mu      sync.Mutex
	current Page
	loaded  bool
}

func NewPager(svc lister) *Pager {
	return &Pager{svc: svc}
}

// FetchPage loads a page and, if the result is still current, records it.
// The boolean reports whether the result was applied; a superseded fetch
// returns its page with applied=false and leaves Current untouched.
func (p *Pager) FetchPage(ctx context.Context, page, pageSize int) (Page, bool, error) {
	gen := p.gen.Add(1)

	result, err := p.svc.List(ctx, page, pageSize)
	if err != nil {
		return Page{}, false, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen.Load() {
		return result, false, nil
	}
	p.current = result
	p.loaded = true
	return result, true, nil
}

// Current returns the last applied page, if any fetch has landed yet.
func (p *Pager) Current() (Page, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.loaded
}
