// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/cutforge/cutforge/pkg/audio"
	"github.com/cutforge/cutforge/pkg/provider/stt"
)

// Call records a single invocation of Transcribe.
type Call struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Buf is the buffer passed to Transcribe.
	Buf audio.Buffer
}

// Provider is a mock implementation of stt.Provider.
// Zero values for response fields cause Transcribe to return nil, nil.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Transcribe.
	Result *stt.Result

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Calls records every invocation of Transcribe in order.
	Calls []Call
}

// Transcribe records the call and returns the configured result.
func (p *Provider) Transcribe(ctx context.Context, buf audio.Buffer) (*stt.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Ctx: ctx, Buf: buf})
	return p.Result, p.Err
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
