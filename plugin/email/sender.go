package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// dialTimeout bounds the TCP connect to the SMTP server.
const dialTimeout = 10 * time.Second

// Sender delivers plain-text notification emails over SMTP.
type Sender struct {
	config *Config
}

// NewSender creates a sender for the given config. A nil or disabled
// config produces a sender whose Send is a logged no-op.
func NewSender(config *Config) *Sender {
	return &Sender{config: config}
}

// Enabled reports whether the sender will actually deliver mail.
func (s *Sender) Enabled() bool {
	return s.config != nil && s.config.Enabled()
}

// Send delivers a plain-text message to a single recipient. The context
// deadline bounds the whole SMTP exchange, not only the dial.
func (s *Sender) Send(ctx context.Context, to, subject, body string) error {
	if !s.Enabled() {
		slog.Debug("email sending skipped, SMTP not configured", "to", to)
		return nil
	}
	if err := s.config.Validate(); err != nil {
		return errors.Wrap(err, "invalid email config")
	}
	if to == "" {
		return errors.New("recipient address is required")
	}

	msg := buildMessage(s.config.FromEmail, to, subject, body)

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.config.GetServerAddress())
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", s.config.GetServerAddress())
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return errors.Wrap(err, "failed to set connection deadline")
		}
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to start SMTP session")
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.config.SMTPHost}); err != nil {
			return errors.Wrap(err, "failed to negotiate STARTTLS")
		}
	}
	if s.config.SMTPUsername != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "SMTP authentication failed")
		}
	}
	if err := client.Mail(s.config.FromEmail); err != nil {
		return errors.Wrap(err, "sender address rejected")
	}
	if err := client.Rcpt(to); err != nil {
		return errors.Wrapf(err, "recipient %s rejected", to)
	}
	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "failed to open message body")
	}
	if _, err := w.Write(msg); err != nil {
		return errors.Wrap(err, "failed to write message body")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to finish message")
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
