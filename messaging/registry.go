package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DefaultBadge identifies a publisher when the caller supplies no badge.
const DefaultBadge = "default"

// Registry owns named publisher instances: create, look up, start and stop
// publishers by a caller-supplied badge.
type Registry struct {
	logger *slog.Logger

	mu         sync.Mutex
	publishers map[string]*Publisher
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger handed to created publishers.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(options ...RegistryOption) *Registry {
	r := &Registry{
		logger:     slog.Default(),
		publishers: make(map[string]*Publisher),
	}

	for _, opt := range options {
		opt(r)
	}
	return r
}

// Create instantiates a publisher under the badge. It refuses when the badge
// is already taken. An empty badge maps to DefaultBadge.
func (r *Registry) Create(badge string, cfg Config, options ...PublisherOption) (*Publisher, error) {
	badge = normalizeBadge(badge)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.publishers[badge]; exists {
		return nil, fmt.Errorf("%w: %q", ErrPublisherExists, badge)
	}

	options = append([]PublisherOption{WithLogger(r.logger.With("badge", badge))}, options...)
	p := NewPublisher(cfg, options...)
	r.publishers[badge] = p
	return p, nil
}

// Start launches the badge's publisher and blocks until it leaves the
// initializing state, failing with the publisher's own status message when
// the first connection attempt errored.
func (r *Registry) Start(ctx context.Context, badge string) error {
	p, err := r.Get(badge)
	if err != nil {
		return err
	}

	p.Start()
	state, msg, err := p.WaitStarted(ctx)
	if err != nil {
		return err
	}
	if state == StateError {
		return fmt.Errorf("steadymq: starting publisher %q: %s", normalizeBadge(badge), msg)
	}
	return nil
}

// Stop requests a shutdown of the badge's publisher.
func (r *Registry) Stop(badge string) error {
	p, err := r.Get(badge)
	if err != nil {
		return err
	}
	p.Stop()
	return nil
}

// Destroy stops and discards the badge's publisher. It is a no-op when the
// badge is unknown.
func (r *Registry) Destroy(badge string) {
	badge = normalizeBadge(badge)

	r.mu.Lock()
	p, exists := r.publishers[badge]
	delete(r.publishers, badge)
	r.mu.Unlock()

	if exists {
		p.Stop()
	}
}

// State reports the connection state and status message of the badge's
// publisher.
func (r *Registry) State(badge string) (ConnectionState, string, error) {
	p, err := r.Get(badge)
	if err != nil {
		return StateInitializing, "", err
	}
	state, msg := p.State()
	return state, msg, nil
}

// Get looks up the publisher registered under the badge.
func (r *Registry) Get(badge string) (*Publisher, error) {
	badge = normalizeBadge(badge)

	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.publishers[badge]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrPublisherUnknown, badge)
	}
	return p, nil
}

func normalizeBadge(badge string) string {
	if badge == "" {
		return DefaultBadge
	}
	return badge
}
