package simulate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angeloszaimis/provider-dispatch/internal/clock"
	"github.com/angeloszaimis/provider-dispatch/internal/dispatch"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
)

// Transcript is the synthetic output of a simulated AI call.
type Transcript struct {
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

// Behavior scripts how a simulated provider fails.
type Behavior struct {
	// FailTimes calls fail before the provider starts succeeding.
	FailTimes int
	// AlwaysFail makes every call fail.
	AlwaysFail bool
	Status     int
	Message    string
	Latency    time.Duration
}

// Provider is an in-memory stand-in for a generative-AI endpoint. It plays a
// scripted sequence of errors and then either succeeds or keeps failing.
type Provider struct {
	name     string
	mutex    sync.Mutex
	script   []error
	fallback error
	latency  time.Duration
	calls    int
}

type Option func(*Provider)

// FailTimes queues n copies of err ahead of any other behavior.
func FailTimes(n int, err error) Option {
	return func(p *Provider) {
		for i := 0; i < n; i++ {
			p.script = append(p.script, err)
		}
	}
}

// Script queues the given errors in order; a nil entry is a success.
func Script(errs ...error) Option {
	return func(p *Provider) {
		p.script = append(p.script, errs...)
	}
}

// AlwaysFail makes every call past the script fail with err.
func AlwaysFail(err error) Option {
	return func(p *Provider) {
		p.fallback = err
	}
}

func WithLatency(d time.Duration) Option {
	return func(p *Provider) {
		p.latency = d
	}
}

func New(name string, opts ...Option) *Provider {
	p := &Provider{name: name}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FromBehavior builds a provider from a configured behavior.
func FromBehavior(name string, b Behavior) *Provider {
	var opts []Option

	failure := &provider.Error{Provider: name, Status: b.Status, Message: b.Message}
	if b.FailTimes > 0 {
		opts = append(opts, FailTimes(b.FailTimes, failure))
	}
	if b.AlwaysFail {
		opts = append(opts, AlwaysFail(failure))
	}
	if b.Latency > 0 {
		opts = append(opts, WithLatency(b.Latency))
	}

	return New(name, opts...)
}

func (p *Provider) Name() string {
	return p.name
}

// Transcribe simulates one AI call.
func (p *Provider) Transcribe(ctx context.Context, prompt string) (Transcript, error) {
	p.mutex.Lock()
	p.calls++
	var err error
	if len(p.script) > 0 {
		err = p.script[0]
		p.script = p.script[1:]
	} else {
		err = p.fallback
	}
	latency := p.latency
	p.mutex.Unlock()

	if sleepErr := clock.Sleep(ctx, latency); sleepErr != nil {
		return Transcript{}, sleepErr
	}
	if err != nil {
		return Transcript{}, err
	}

	return Transcript{
		Provider: p.name,
		Text:     fmt.Sprintf("[%s] %s", p.name, prompt),
	}, nil
}

func (p *Provider) Calls() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.calls
}

// Set maps provider names to their simulated endpoints.
type Set map[string]*Provider

func NewSet(providers ...*Provider) Set {
	s := make(Set, len(providers))
	for _, p := range providers {
		s[p.name] = p
	}
	return s
}

// TranscribeOperation binds prompt into a dispatch operation that routes to
// the simulated endpoint of whichever provider the dispatcher picks.
func (s Set) TranscribeOperation(prompt string) dispatch.Operation[Transcript] {
	return func(ctx context.Context, cfg provider.Config) (Transcript, error) {
		p, ok := s[cfg.Name]
		if !ok {
			return Transcript{}, &provider.Error{Provider: cfg.Name, Status: 404, Message: "no simulated endpoint"}
		}
		return p.Transcribe(ctx, prompt)
	}
}
