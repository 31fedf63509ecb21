// Package inbox scans a mailbox for video requests and replies with results.
//
// At-most-once processing per message is enforced twice: a thread label keeps
// already-handled threads out of later scans, and a fingerprint store guards
// each (message, url) pair against concurrent or re-run duplication.
package inbox

import (
	"context"
	"net/mail"
	"strings"
)

// Message is one inbound mail message.
type Message struct {
	ID      string
	From    string
	Subject string
	Body    string // HTML or plain text
}

// Thread groups messages the mailbox considers one conversation.
type Thread struct {
	ID       string
	Subject  string
	Messages []Message
}

// Client is the inbox collaborator.
type Client interface {
	// Search returns threads matching the mailbox query.
	Search(ctx context.Context, query string) ([]Thread, error)
	// HasLabel reports whether the thread already carries label.
	HasLabel(ctx context.Context, threadID, label string) (bool, error)
	// AddLabel marks the thread so later scans skip it.
	AddLabel(ctx context.Context, threadID, label string) error
}

// SenderAddress extracts the bare address from a From header such as
// "Some Name <user@example.com>". Malformed headers are returned as-is.
func SenderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(from)
}
