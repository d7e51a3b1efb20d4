package email

import "context"

// MessageSource is a mailbox that yields unread job alert messages.
type MessageSource interface {
	Name() string
	// Fetch returns up to max unread messages, newest first, without marking them read.
	Fetch(ctx context.Context, max int) ([]EmailMessage, error)
	// MarkSeen marks the messages with the given ids as read.
	MarkSeen(ctx context.Context, ids []string) error
	Close() error
}
