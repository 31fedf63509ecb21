// Package mailer is the messaging collaborator: terminal notifications to
// requesters and batch summaries.
//
// Every processed request produces exactly one notification. Internal errors
// reach the requester only as summarized reasons, never raw traces.
package mailer

import (
	"context"
	"sync"
)

// Attachment is an inline payload on an outbound message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is one outbound notification.
type Message struct {
	Recipient  string
	Subject    string
	HTMLBody   string
	Attachment *Attachment // nil for link/rejection/failure notifications
}

// Sender delivers messages. Implementations wrap whatever mail transport the
// deployment uses.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// RateCounter tracks outbound calls across concurrent requests. Deployments
// use it to stay under provider send quotas.
type RateCounter struct {
	mu    sync.Mutex
	count int
}

// Inc records one outbound call and returns the running total.
func (r *RateCounter) Inc() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.count
}

// Count returns the running total.
func (r *RateCounter) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// CountingSender wraps a Sender with a shared RateCounter.
type CountingSender struct {
	Sender  Sender
	Counter *RateCounter
}

// Send implements Sender.
func (c *CountingSender) Send(ctx context.Context, msg Message) error {
	if c.Counter != nil {
		c.Counter.Inc()
	}
	return c.Sender.Send(ctx, msg)
}
