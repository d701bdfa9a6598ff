// Copyright 2025 SteadyMQ Contributors
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

// Package steadymq keeps long-lived publishers alive against an AMQP broker
// and tracks the delivery outcome of everything they publish.
package steadymq

import (
	"context"
	"log/slog"

	"github.com/steadymq/steadymq-go/contracts"
	"github.com/steadymq/steadymq-go/messaging"
)

// Client is the main entry point: a registry of named publishers plus the
// connection settings they share.
type Client struct {
	registry *messaging.Registry
	cfg      messaging.Config
	logger   *slog.Logger
}

type clientConfig struct {
	cfg    messaging.Config
	hasCfg bool
	logger *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithConfig replaces the environment-derived configuration.
func WithConfig(cfg messaging.Config) ClientOption {
	return func(c *clientConfig) {
		c.cfg = cfg
		c.hasCfg = true
	}
}

// WithLogger sets the logger shared by all publishers.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// NewClient builds a client, reading the MQ_* environment variables unless a
// configuration is supplied with WithConfig.
func NewClient(options ...ClientOption) (*Client, error) {
	cc := &clientConfig{logger: slog.Default()}
	for _, opt := range options {
		opt(cc)
	}

	if !cc.hasCfg {
		cfg, err := messaging.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		cc.cfg = cfg
	}

	return &Client{
		registry: messaging.NewRegistry(messaging.WithRegistryLogger(cc.logger)),
		cfg:      cc.cfg,
		logger:   cc.logger,
	}, nil
}

// CreatePublisher registers a publisher under the badge. An empty badge maps
// to messaging.DefaultBadge.
func (c *Client) CreatePublisher(badge string, options ...messaging.PublisherOption) (*messaging.Publisher, error) {
	return c.registry.Create(badge, c.cfg, options...)
}

// StartPublisher starts the badge's publisher and blocks until it leaves the
// initializing state.
func (c *Client) StartPublisher(ctx context.Context, badge string) error {
	return c.registry.Start(ctx, badge)
}

// StopPublisher requests a shutdown of the badge's publisher.
func (c *Client) StopPublisher(badge string) error {
	return c.registry.Stop(badge)
}

// DestroyPublisher stops and discards the badge's publisher.
func (c *Client) DestroyPublisher(badge string) {
	c.registry.Destroy(badge)
}

// PublisherState reports the connection state and status message of the
// badge's publisher.
func (c *Client) PublisherState(badge string) (messaging.ConnectionState, string, error) {
	return c.registry.State(badge)
}

// Publish submits one message through the badge's publisher and returns its
// sequence number. The routing key is prefixed with the configured routing
// base when one is set.
func (c *Client) Publish(ctx context.Context, badge, routingKey string, body []byte, options ...contracts.MessageOption) (uint64, error) {
	p, err := c.registry.Get(badge)
	if err != nil {
		return 0, err
	}
	return p.Publish(ctx, contracts.NewMessage(c.routingKey(routingKey), body, options...))
}

// Registry exposes the underlying publisher registry.
func (c *Client) Registry() *messaging.Registry {
	return c.registry
}

func (c *Client) routingKey(key string) string {
	if c.cfg.RoutingBase == "" {
		return key
	}
	return c.cfg.RoutingBase + "." + key
}
