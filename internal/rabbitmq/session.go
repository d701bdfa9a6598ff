package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/steadymq/steadymq-go/contracts"
)

// appID is stamped on every publishing so broker-side tooling can attribute
// traffic to this client.
const appID = "steadymq-publisher"

// Dialer opens broker sessions over amqp091.
type Dialer struct{}

// NewDialer creates a dialer.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Dial connects to the broker and opens the session channel. Connection- and
// channel-level close notifications are merged into a single stream: a channel
// that dies cannot be reopened on its old connection, so either event tears
// down the whole session.
func (d *Dialer) Dial(url string) (*Session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", URL: SanitizeURL(url), Err: err}
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, &ConnectionError{Op: "open channel", URL: SanitizeURL(url), Err: err}
	}

	s := &Session{
		conn:   conn,
		ch:     ch,
		closed: make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.forwardClose(
		conn.NotifyClose(make(chan *amqp.Error, 1)),
		ch.NotifyClose(make(chan *amqp.Error, 1)),
	)
	return s, nil
}

// Session is one connection with a single channel on top. It lives for
// exactly one connection cycle; reconnection always produces a fresh Session.
type Session struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan error

	done     chan struct{} // closed once the session is dead or abandoned
	doneOnce sync.Once
}

func (s *Session) markDone() {
	s.doneOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) forwardClose(connClose, chClose <-chan *amqp.Error) {
	var reason *amqp.Error
	select {
	case reason = <-connClose:
	case reason = <-chClose:
	}
	s.markDone()

	if reason != nil {
		s.closed <- reason
		return
	}
	s.closed <- nil
}

// DeclareExchange verifies that the exchange already exists with the expected
// kind. The declaration is passive: this client never creates topology and
// fails loudly when the exchange is missing.
func (s *Session) DeclareExchange(name, kind string) error {
	err := s.ch.ExchangeDeclarePassive(
		name,
		kind,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return &ConnectionError{Op: "declare exchange " + name, Err: err}
	}
	return nil
}

// Confirmations puts the channel into confirm mode and returns the stream of
// delivery confirmations. amqp091 expands cumulative acks into individual
// confirmations before delivery, so Multiple is always false here; the ledger
// handles both forms.
func (s *Session) Confirmations(buffer int) (<-chan contracts.Confirmation, error) {
	if err := s.ch.Confirm(false); err != nil {
		return nil, &ConnectionError{Op: "enable confirm mode", Err: err}
	}

	raw := s.ch.NotifyPublish(make(chan amqp.Confirmation, buffer))
	out := make(chan contracts.Confirmation, buffer)
	go forwardConfirmations(raw, out, s.done)
	return out, nil
}

// forwardConfirmations adapts the amqp091 confirmation stream until it ends
// or the session is abandoned. Nobody reads out after the consumer saw the
// close notification, so pushes must stay interruptible.
func forwardConfirmations(raw <-chan amqp.Confirmation, out chan<- contracts.Confirmation, done <-chan struct{}) {
	defer close(out)
	for c := range raw {
		select {
		case out <- contracts.Confirmation{DeliveryTag: c.DeliveryTag, Ack: c.Ack}:
		case <-done:
			return
		}
	}
}

// Publish hands one envelope to the broker on this session's channel.
func (s *Session) Publish(ctx context.Context, exchange string, msg *contracts.Message) error {
	return s.ch.PublishWithContext(
		ctx,
		exchange,
		msg.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			AppId:       appID,
			MessageId:   msg.ID,
			Timestamp:   time.Now(),
			ContentType: msg.ContentType,
			Headers:     amqp.Table(msg.Headers),
			Body:        msg.Body,
		},
	)
}

// NotifyClose reports the first connection- or channel-level closure.
func (s *Session) NotifyClose() <-chan error {
	return s.closed
}

// Close shuts the channel down first, then the connection. Already-closed
// resources are not an error.
func (s *Session) Close() error {
	s.markDone()
	if err := s.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		_ = s.conn.Close()
		return err
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}
