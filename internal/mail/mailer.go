// Package mail defines the outbound mail collaborator. Delivery itself is
// external; the auth service only needs Send.
package mail

import "context"

// Mailer sends a single HTML email. A failure is surfaced to the caller;
// nothing here retries.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
