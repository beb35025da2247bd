package email

import "context"

// EmailSender abstracts notice delivery so tests can capture sends instead
// of hitting SES.
type EmailSender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
