package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
)

// ErrMissingCredentials is returned when the SMTP account is not configured.
var ErrMissingCredentials = errors.New("missing email credentials")

// Mailer relays a message to an SMTP server.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the outgoing mail account.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
}

// SMTPMailer sends plain-text mail over an authenticated TLS connection.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer creates a mailer. Credentials are checked on each send so the
// endpoint can report them as missing instead of failing at startup.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPMailer{cfg: cfg}
}

// Send delivers msg with the configured account as sender.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.User == "" || m.cfg.Password == "" {
		return ErrMissingCredentials
	}

	mm := mail.NewMsg()
	if err := mm.FromFormat(m.cfg.FromName, m.cfg.User); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := mm.To(msg.To); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, NormalizeText(msg.Text))

	client, err := mail.NewClient(m.cfg.Host,
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}
