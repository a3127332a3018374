package mail

import (
	"context"

	"gopkg.in/gomail.v2"

	"github.com/gieogita/portal-auth/internal/config"
)

// SMTPMailer delivers mail through an SMTP relay using gomail.
type SMTPMailer struct {
	dialer      *gomail.Dialer
	fromAddress string
	fromName    string
}

func NewSMTPMailer(cfg config.SMTP) *SMTPMailer {
	return &SMTPMailer{
		dialer:      gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

// Send dials the relay and delivers one message. The blocking dial-and-send
// runs in a goroutine so a request-scoped context can bound it; on context
// expiry the send is abandoned and the context error returned.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.fromAddress, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
