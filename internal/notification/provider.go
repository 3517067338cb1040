// Package notification provides an abstraction for delivering stakeholder
// notifications (currently email via SMTP).
package notification

import (
	"context"
	"io"
)

// Attachment is a named file attached to a Message.
type Attachment struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// Message is the content to be delivered by a Provider.
type Message struct {
	Subject     string
	Body        string
	To          []string
	Attachments []Attachment
}

// Provider is the interface for notification delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}
