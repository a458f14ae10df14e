package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"moonbounce/internal/config"
	"moonbounce/internal/errors"
)

type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Sender is the email transport collaborator. Implementations do not retry;
// the reminder scheduler re-attempts the same tier on its next tick.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	addr     string
	auth     smtp.Auth
	hostname string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:     auth,
		hostname: cfg.Host,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return errors.NewTransportError("sending mail", err)
	}

	body := buildMIME(msg)
	if err := smtp.SendMail(s.addr, s.auth, msg.From, []string{msg.To}, body); err != nil {
		return errors.NewTransportError("sending mail", err)
	}
	return nil
}

func buildMIME(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTML == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(msg.Text)
		return []byte(b.String())
	}

	const boundary = "mb-alt-boundary"
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}
