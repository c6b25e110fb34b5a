// Package notify hands appointment notices to an outbound delivery channel.
// Delivery itself (SMTP, SMS, ...) happens downstream of the queue.
package notify

import (
	"context"
	"regexp"
	"strings"
)

// Sender delivers one message to a recipient handle.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)

// IsEmailAddress reports whether handle looks like an email address.
func IsEmailAddress(handle string) bool {
	return emailPattern.MatchString(strings.TrimSpace(handle))
}
