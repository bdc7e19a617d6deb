package mailer

import "context"

// Message is a rendered email ready for dispatch.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers rendered messages. Implementations must be safe for
// concurrent use; dispatch happens on queue workers.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
