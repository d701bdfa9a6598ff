package contracts

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Message is one outbound message envelope. It is created at submission time
// and never mutated afterwards; the delivery ledger owns it from transmission
// until the broker resolves its outcome.
type Message struct {
	// ID identifies the message across connection cycles.
	ID string
	// RoutingKey selects the binding the exchange routes the message by.
	RoutingKey string
	// ContentType is the MIME type of Body.
	ContentType string
	// Headers carries optional application headers.
	Headers map[string]any
	// Body is the opaque payload.
	Body []byte
}

// MessageOption customizes a Message at creation time.
type MessageOption func(*Message)

// WithContentType overrides the detected content type.
func WithContentType(contentType string) MessageOption {
	return func(m *Message) {
		m.ContentType = contentType
	}
}

// WithHeaders sets the application headers.
func WithHeaders(headers map[string]any) MessageOption {
	return func(m *Message) {
		m.Headers = headers
	}
}

// WithMessageID overrides the generated message ID.
func WithMessageID(id string) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

// NewMessage builds a message envelope with a generated ID. When no content
// type is supplied it is detected from the payload.
func NewMessage(routingKey string, body []byte, options ...MessageOption) *Message {
	m := &Message{
		ID:         uuid.NewString(),
		RoutingKey: routingKey,
		Body:       body,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.ContentType == "" {
		m.ContentType = mimetype.Detect(body).String()
	}

	return m
}
