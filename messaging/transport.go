package messaging

import (
	"context"

	"github.com/steadymq/steadymq-go/contracts"
	"github.com/steadymq/steadymq-go/internal/rabbitmq"
)

// BrokerSession is one connection cycle toward the broker: a connection with
// a single channel on top. Sessions are never reused across reconnects.
type BrokerSession interface {
	// DeclareExchange verifies the target exchange exists (passive declare).
	DeclareExchange(name, kind string) error

	// Confirmations enables delivery-confirmation mode on the channel and
	// returns the stream of broker verdicts.
	Confirmations(buffer int) (<-chan contracts.Confirmation, error)

	// Publish hands one envelope to the broker on this session's channel.
	Publish(ctx context.Context, exchange string, msg *contracts.Message) error

	// NotifyClose reports the first connection- or channel-level closure.
	NotifyClose() <-chan error

	// Close tears down the channel and the connection.
	Close() error
}

// BrokerDialer opens broker sessions.
type BrokerDialer interface {
	Dial(url string) (BrokerSession, error)
}

// amqpDialer adapts the amqp091 implementation to BrokerDialer.
type amqpDialer struct {
	dialer *rabbitmq.Dialer
}

func (d amqpDialer) Dial(url string) (BrokerSession, error) {
	s, err := d.dialer.Dial(url)
	if err != nil {
		return nil, err
	}
	return s, nil
}
