package email

import (
	"context"
	"time"
)

// noticeContext derives the context for an async notice send. Cancellation is
// detached so a handler finishing its request doesn't abort the delivery; the
// timeout still bounds it.
func noticeContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	parent = context.WithoutCancel(parent)
	return context.WithTimeout(parent, timeout)
}
