// Package messaging implements the resilient publishing core: a connection
// lifecycle state machine that keeps a long-lived broker connection alive
// across network failures, an outbound scheduler that assigns sequence numbers
// to submitted messages, and a delivery ledger that tracks every publish until
// the broker confirms or rejects it.
//
// One background goroutine per Publisher owns the connection, the channel and
// all broker events. Callers interact only through Publish, State, Stats and
// Stop, from any goroutine. A Registry manages named Publisher instances.
//
// Publishing is at-least-once: a message accepted by Publish has been handed
// to the broker once "acknowledged" shows up in the stats, but entries left
// unresolved when a connection dies are dropped on reconnect, because the
// broker's verdict on them is unknowable. Consumers own deduplication.
package messaging
