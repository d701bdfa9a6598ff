package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/steadymq/steadymq-go/contracts"
	"github.com/steadymq/steadymq-go/internal/rabbitmq"
	"github.com/steadymq/steadymq-go/internal/reliability"
)

// confirmBuffer sizes the confirmation stream; the broker may batch verdicts.
const confirmBuffer = 64

// Publisher keeps one logical connection to the broker alive and tracks the
// delivery outcome of every message it publishes. A single background
// goroutine owns the connection, the channel and all broker events; Publish,
// State, Stats and Stop may be called from any goroutine.
type Publisher struct {
	cfg    Config
	dialer BrokerDialer
	logger *slog.Logger
	delay  *reliability.ReconnectDelay

	mu       sync.Mutex
	state    ConnectionState
	stateMsg string
	ready    bool            // open channel with confirm mode enabled
	ledger   *deliveryLedger // recreated on every connection cycle
	queue    *outboundQueue  // recreated on every connection cycle

	sendCh    chan struct{}
	stopCh    chan struct{}
	done      chan struct{}
	initDone  chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	initOnce  sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithDialer replaces the amqp091 dialer, mainly for tests.
func WithDialer(dialer BrokerDialer) PublisherOption {
	return func(p *Publisher) {
		p.dialer = dialer
	}
}

// NewPublisher creates a publisher for the given configuration. Nothing
// connects until Start is called.
func NewPublisher(cfg Config, options ...PublisherOption) *Publisher {
	cfg = cfg.withDefaults()

	p := &Publisher{
		cfg:      cfg,
		dialer:   amqpDialer{dialer: rabbitmq.NewDialer()},
		logger:   slog.Default(),
		delay:    reliability.NewReconnectDelay(cfg.MaxReconnectDelay),
		state:    StateInitializing,
		stateMsg: "attempting to start the publisher",
		ledger:   newDeliveryLedger(),
		queue:    newOutboundQueue(),
		sendCh:   make(chan struct{}, confirmBuffer),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		initDone: make(chan struct{}),
	}

	for _, opt := range options {
		opt(p)
	}

	p.logger.Info("publisher instantiated",
		"exchange", cfg.Exchange,
		"kind", cfg.ExchangeKind)
	return p
}

// Start launches the background event loop. Further calls are no-ops.
func (p *Publisher) Start() {
	p.startOnce.Do(func() {
		go p.run()
	})
}

// Stop requests a cooperative shutdown: the event loop closes the channel and
// the connection and exits without reconnecting. Stop is idempotent and safe
// to call before Start.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("publisher stopping")
		close(p.stopCh)
	})
}

// Done is closed once the event loop has exited. It is only meaningful after
// Start.
func (p *Publisher) Done() <-chan struct{} {
	return p.done
}

// WaitStarted blocks until the state first leaves StateInitializing or the
// publisher is stopped, then reports the state and its status message.
func (p *Publisher) WaitStarted(ctx context.Context) (ConnectionState, string, error) {
	select {
	case <-p.initDone:
	case <-p.stopCh:
	case <-ctx.Done():
		return StateInitializing, "", ctx.Err()
	}
	state, msg := p.State()
	return state, msg, nil
}

// State reports the current connection state and its human-readable message.
func (p *Publisher) State() (ConnectionState, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.stateMsg
}

// DeliveryStats is a snapshot of the delivery bookkeeping of the current
// connection cycle.
type DeliveryStats struct {
	Acked           uint64
	Nacked          uint64
	LastSubmitted   uint64
	LastTransmitted uint64
	Pending         int
}

// Stats returns the delivery counters of the current connection cycle.
func (p *Publisher) Stats() DeliveryStats {
	p.mu.Lock()
	ledger, queue := p.ledger, p.queue
	p.mu.Unlock()

	acked, nacked := ledger.counters()
	submitted, transmitted := queue.stats()
	return DeliveryStats{
		Acked:           acked,
		Nacked:          nacked,
		LastSubmitted:   submitted,
		LastTransmitted: transmitted,
		Pending:         ledger.pendingCount(),
	}
}

// PendingCount reports how many transmitted messages still await a broker
// verdict. Callers needing a delivery timeout build it on top of this.
func (p *Publisher) PendingCount() int {
	p.mu.Lock()
	ledger := p.ledger
	p.mu.Unlock()
	return ledger.pendingCount()
}

// Publish submits one message for publication. It refuses with
// ErrNoOpenChannel while no open channel with confirm mode exists; accepted
// messages receive the next sequence number and are transmitted after the
// configured publish interval.
func (p *Publisher) Publish(ctx context.Context, msg *contracts.Message) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		p.logger.Error("message refused: no open channel to the broker",
			"routingKey", msg.RoutingKey)
		return 0, ErrNoOpenChannel
	}
	seq := p.queue.enqueue(msg)
	p.mu.Unlock()

	time.AfterFunc(p.cfg.PublishInterval, func() {
		select {
		case p.sendCh <- struct{}{}:
		case <-p.stopCh:
		}
	})

	p.logger.Info("message scheduled",
		"seq", seq,
		"routingKey", msg.RoutingKey,
		"delay", p.cfg.PublishInterval)
	return seq, nil
}

// run drives connection cycles until a stop is requested.
func (p *Publisher) run() {
	defer close(p.done)

	p.logger.Info("publisher started")
	for p.cycle() {
	}
	p.setState(StateClosed, "publisher stopped")
	p.logger.Info("publisher finished")
}

// cycle runs one full connection cycle and reports whether another one
// should follow.
func (p *Publisher) cycle() bool {
	select {
	case <-p.stopCh:
		return false
	default:
	}

	p.resetCycle()
	p.logger.Info("connecting", "url", rabbitmq.SanitizeURL(p.cfg.URL))

	session, err := p.dialer.Dial(p.cfg.URL)
	if err != nil {
		p.setState(StateError, fmt.Sprintf("error establishing connection: %v", err))
		p.logger.Error("connect failed", "error", err)
		return p.waitReconnect()
	}
	p.setState(StateOpen, "connection is open")
	p.logger.Info("connected", "url", rabbitmq.SanitizeURL(p.cfg.URL))

	confirms, err := p.setup(session)
	if err != nil {
		// Topology and confirm-mode failures take the same reconnect path
		// as transport errors; the operator sees them in the state message.
		p.setState(StateClosed, fmt.Sprintf("channel setup failed: %v", err))
		p.logger.Error("channel setup failed", "error", err)
		if cerr := session.Close(); cerr != nil {
			p.logger.Error("closing session", "error", cerr)
		}
		return p.waitReconnect()
	}

	if stopped := p.serve(session, confirms); stopped {
		return false
	}
	return p.waitReconnect()
}

// setup opens the publishing path on a fresh session: verify the exchange
// exists, then enable delivery confirmations. Reaching the ready state is the
// only path that resets the reconnect backoff.
func (p *Publisher) setup(session BrokerSession) (<-chan contracts.Confirmation, error) {
	p.logger.Info("declaring exchange",
		"exchange", p.cfg.Exchange,
		"kind", p.cfg.ExchangeKind)
	if err := session.DeclareExchange(p.cfg.Exchange, p.cfg.ExchangeKind); err != nil {
		return nil, err
	}

	confirms, err := session.Confirmations(confirmBuffer)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()
	p.delay.MarkReady()
	p.setState(StateOpen, "exchange declared, publisher ready")
	p.logger.Info("publisher ready", "exchange", p.cfg.Exchange)
	return confirms, nil
}

// serve processes broker events until the session dies or a stop is
// requested. It reports true when the publisher is stopping for good.
func (p *Publisher) serve(session BrokerSession, confirms <-chan contracts.Confirmation) bool {
	for {
		select {
		case conf, ok := <-confirms:
			if !ok {
				// The stream ends when the channel shuts down; the close
				// notification drives the state change.
				confirms = nil
				continue
			}
			p.handleConfirmation(conf)

		case err := <-session.NotifyClose():
			p.markChannelClosed()
			select {
			case <-p.stopCh:
				return true
			default:
			}
			p.setState(StateClosed, fmt.Sprintf("connection was closed: %v", err))
			p.logger.Warn("connection closed", "reason", err)
			return false

		case <-p.sendCh:
			if err := p.transmitNext(session); err != nil {
				// A failed publish leaves the sequence counter ahead of the
				// broker's delivery tags; every later confirmation would
				// resolve the wrong entry. Recycle the connection.
				p.markChannelClosed()
				p.setState(StateClosed, fmt.Sprintf("publish failed: %v", err))
				p.logger.Error("publish failed, closing connection", "error", err)
				if cerr := session.Close(); cerr != nil {
					p.logger.Error("closing session", "error", cerr)
				}
				return false
			}

		case <-p.stopCh:
			p.markChannelClosed()
			if err := session.Close(); err != nil {
				p.logger.Error("closing session", "error", err)
			}
			return true
		}
	}
}

// handleConfirmation applies one broker verdict to the ledger.
func (p *Publisher) handleConfirmation(conf contracts.Confirmation) {
	p.mu.Lock()
	ledger := p.ledger
	p.mu.Unlock()

	resolved := ledger.resolve(conf.DeliveryTag, conf.Ack, conf.Multiple)
	if resolved == 0 {
		// The broker may replay verdicts after a reconnect.
		p.logger.Debug("confirmation for unknown sequence", "seq", conf.DeliveryTag)
		return
	}

	acked, nacked := ledger.counters()
	p.logger.Debug("delivery confirmation",
		"seq", conf.DeliveryTag,
		"ack", conf.Ack,
		"multiple", conf.Multiple,
		"acked", acked,
		"nacked", nacked,
		"pending", ledger.pendingCount())
}

// transmitNext hands the oldest waiting message to the transport and records
// it in the ledger. A message whose transmission window passed while the
// channel was down is not replayed; the caller's at-least-once contract
// covers it. A transport error is fatal for the session: the caller must
// abandon it, because the broker's delivery tags and the sequence counter
// are no longer in lockstep.
func (p *Publisher) transmitNext(session BrokerSession) error {
	p.mu.Lock()
	if !p.ready {
		p.mu.Unlock()
		p.logger.Error("cannot publish: no open channel to the broker")
		return nil
	}
	queue, ledger := p.queue, p.ledger
	p.mu.Unlock()

	seq, msg, ok := queue.next()
	if !ok {
		return nil
	}

	if err := session.Publish(context.Background(), p.cfg.Exchange, msg); err != nil {
		return fmt.Errorf("publishing sequence %d to %q: %w", seq, msg.RoutingKey, err)
	}
	if err := ledger.record(seq, msg); err != nil {
		p.logger.Error("recording pending delivery", "seq", seq, "error", err)
		return nil
	}
	p.logger.Info("message published", "seq", seq, "routingKey", msg.RoutingKey)
	return nil
}

// resetCycle installs fresh bookkeeping for a new connection cycle. Whatever
// the broker never resolved in the previous cycle is dropped: its verdict is
// unknowable after a reconnect.
func (p *Publisher) resetCycle() {
	p.mu.Lock()
	dropped := p.ledger.pendingCount()
	p.ledger = newDeliveryLedger()
	p.queue = newOutboundQueue()
	p.ready = false
	p.mu.Unlock()

	if dropped > 0 {
		p.logger.Warn("dropping unresolved deliveries from previous connection",
			"count", dropped)
	}
}

// waitReconnect sleeps for the next backoff delay, staying responsive to
// Stop. It reports false when the publisher is stopping.
func (p *Publisher) waitReconnect() bool {
	delay := p.delay.Next()
	p.logger.Info("reconnecting", "delay", delay)

	select {
	case <-time.After(delay):
		return true
	case <-p.stopCh:
		return false
	}
}

func (p *Publisher) markChannelClosed() {
	p.mu.Lock()
	p.ready = false
	p.mu.Unlock()
}

func (p *Publisher) setState(state ConnectionState, msg string) {
	p.mu.Lock()
	p.state = state
	p.stateMsg = msg
	p.mu.Unlock()

	if state != StateInitializing {
		p.initOnce.Do(func() {
			close(p.initDone)
		})
	}
}
