package port

import "context"

// MessageSender posts plain-text messages to a configured chat
type MessageSender interface {
	SendText(ctx context.Context, content string) (string, error)
}
