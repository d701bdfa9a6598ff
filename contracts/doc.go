// Package contracts defines the wire-level value types exchanged between the
// messaging core and its transports: the outbound message envelope and the
// broker's delivery confirmation.
package contracts
