package rabbitmq

import (
	"fmt"
	"strings"
)

// ConnectionError wraps a failure while establishing or operating broker
// resources.
type ConnectionError struct {
	Op  string // operation that failed
	URL string // connection URL, sanitized
	Err error  // underlying error
}

func (e *ConnectionError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("rabbitmq: %s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("rabbitmq: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// SanitizeURL strips the credentials from an AMQP URL so it can be logged.
func SanitizeURL(raw string) string {
	start := strings.Index(raw, "//")
	end := strings.Index(raw, "@")
	if start >= 0 && end > start+2 {
		return raw[:start+2] + "***" + raw[end:]
	}
	return raw
}
