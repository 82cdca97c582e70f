// Package queue moves notification e-mails through RabbitMQ: the request
// path publishes an EmailRequestedEvent and a background consumer delivers it.
package queue

import "time"

// EmailRequestedEvent is published once per notification e-mail. It
// carries the rendered message so the consumer needs no database access.
type EmailRequestedEvent struct {
	To          []string  `json:"to"`
	Cc          []string  `json:"cc,omitempty"`
	Subject     string    `json:"subject"`
	HTML        string    `json:"html"`
	RequestedAt time.Time `json:"requested_at"`
}
