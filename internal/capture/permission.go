package capture

import (
	"context"
	"sync"
)

// Permissions is the platform microphone-permission boundary. Both calls are
// idempotent; Request may prompt the user.
type Permissions interface {
	Check() bool
	Request(ctx context.Context) bool
}

// StaticPermissions answers from a fixed grant, with an optional prompt hook
// for platforms that surface a dialog. The first successful Request sticks.
type StaticPermissions struct {
	mu      sync.Mutex
	granted bool
	prompt  func(ctx context.Context) bool
}

func NewStaticPermissions(granted bool) *StaticPermissions {
	return &StaticPermissions{granted: granted}
}

// NewPromptPermissions defers the first Request to prompt; later calls reuse
// the recorded answer.
func NewPromptPermissions(prompt func(ctx context.Context) bool) *StaticPermissions {
	return &StaticPermissions{prompt: prompt}
}

func (p *StaticPermissions) Check() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.granted
}

func (p *StaticPermissions) Request(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.granted {
		return true
	}
	if p.prompt != nil {
		p.granted = p.prompt(ctx)
	}
	return p.granted
}
