package mailer

import (
	"bytes"
	"context"
	"fmt"

	mail "github.com/wneessen/go-mail"

	"github.com/astraietm/registration/internal/config"
)

// Mailer delivers one ticket email. Implementations must be safe for
// concurrent use by the mail workers.
type Mailer interface {
	SendTicket(ctx context.Context, t Ticket) error
}

// SMTPMailer sends ticket emails over SMTP.
type SMTPMailer struct {
	client  *mail.Client
	from    string
	baseURL string
}

// NewSMTPMailer builds an SMTP mailer from configuration. baseURL is
// the public origin encoded into ticket QR codes.
func NewSMTPMailer(cfg config.SMTP, baseURL string) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("build smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.From, baseURL: baseURL}, nil
}

// SendTicket renders and delivers one confirmation email with the QR
// pass inlined in the body and attached as a downloadable file.
func (m *SMTPMailer) SendTicket(ctx context.Context, t Ticket) error {
	png, err := QRPNG(m.baseURL, t.Registration.Token)
	if err != nil {
		return err
	}
	html, err := RenderHTML(t)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(t.Registration.UserEmail); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(t.Subject())
	msg.SetBodyString(mail.TypeTextHTML, html)
	if err := msg.EmbedReader("qr_ticket.png", bytes.NewReader(png),
		mail.WithFileContentID("qr_ticket")); err != nil {
		return fmt.Errorf("embed qr: %w", err)
	}
	if err := msg.AttachReader(attachmentName(t), bytes.NewReader(png)); err != nil {
		return fmt.Errorf("attach qr: %w", err)
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send ticket email: %w", err)
	}
	return nil
}
