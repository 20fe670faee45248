// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify prompts and to feed controlled
// responses without a live LLM backend. All fields are safe to set before
// calling any method; mutating them during a concurrent call is the caller's
// responsibility.
//
// Example:
//
//	p := &mock.Provider{
//	    Response: &llm.Response{Content: "the <cut>um</cut> cat"},
//	}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/cutforge/cutforge/pkg/provider/llm"
)

// Call records a single invocation of Complete.
type Call struct {
	// Ctx is the context passed to Complete.
	Ctx context.Context
	// Req is the Request passed to Complete.
	Req llm.Request
}

// Provider is a mock implementation of llm.Provider.
// Zero values for response fields cause Complete to return nil, nil.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Complete when CompleteFunc is nil.
	Response *llm.Response

	// Err, if non-nil, is returned as the error from Complete.
	Err error

	// CompleteFunc, if non-nil, overrides Response/Err and computes the
	// reply per call. Useful for prompt-dependent scripting.
	CompleteFunc func(ctx context.Context, req llm.Request) (*llm.Response, error)

	// Calls records every invocation of Complete in order.
	Calls []Call
}

// Complete records the call and returns the configured response.
func (p *Provider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, Call{Ctx: ctx, Req: req})
	fn := p.CompleteFunc
	resp, err := p.Response, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return resp, err
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
