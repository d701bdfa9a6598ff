package contracts

// Confirmation reports the broker's verdict on one published message,
// identified by the per-channel delivery tag assigned at publish time.
type Confirmation struct {
	// DeliveryTag is the sequence number of the confirmed message.
	DeliveryTag uint64
	// Ack is true for a positive confirmation, false for a rejection.
	Ack bool
	// Multiple marks a cumulative confirmation covering every outstanding
	// tag up to and including DeliveryTag.
	Multiple bool
}
