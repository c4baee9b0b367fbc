// Package mailer renders and delivers ticket confirmation emails with
// the QR entry pass inlined and attached.
package mailer

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/astraietm/registration/internal/model"
)

//go:embed ticket.html.tmpl
var ticketTemplateSrc string

var ticketTemplate = template.Must(template.New("ticket").Parse(ticketTemplateSrc))

const qrSizePx = 256

// Ticket is one confirmation email to deliver.
type Ticket struct {
	Registration model.Registration
	Event        model.Event
}

// Subject builds the email subject line.
func (t Ticket) Subject() string {
	return fmt.Sprintf("Your Ticket for %s", t.Event.Title)
}

// VerifyURL returns the server-verifiable URL the QR code encodes.
// The QR never carries raw row ids, only the opaque token.
func VerifyURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/verify/" + token
}

// QRPNG renders the verification URL as a PNG image.
func QRPNG(baseURL, token string) ([]byte, error) {
	png, err := qrcode.Encode(VerifyURL(baseURL, token), qrcode.Medium, qrSizePx)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// RenderHTML produces the email body for a ticket.
func RenderHTML(t Ticket) (string, error) {
	tokenPreview := t.Registration.Token
	if len(tokenPreview) > 16 {
		tokenPreview = tokenPreview[:16]
	}
	var buf bytes.Buffer
	err := ticketTemplate.Execute(&buf, map[string]string{
		"Name":         displayName(t.Registration),
		"EventTitle":   t.Event.Title,
		"EventDate":    t.Event.EventDate.Format("Monday, January 2, 2006"),
		"EventTime":    t.Event.EventDate.Format("3:04 PM"),
		"Venue":        t.Event.Venue,
		"TeamName":     t.Registration.TeamName,
		"TokenPreview": tokenPreview,
	})
	if err != nil {
		return "", fmt.Errorf("render ticket template: %w", err)
	}
	return buf.String(), nil
}

func displayName(reg model.Registration) string {
	if reg.UserName != "" {
		return reg.UserName
	}
	return reg.UserEmail
}

// attachmentName builds the downloadable QR filename.
func attachmentName(t Ticket) string {
	title := strings.ReplaceAll(t.Event.Title, " ", "_")
	tok := t.Registration.Token
	if len(tok) > 8 {
		tok = tok[:8]
	}
	return fmt.Sprintf("Ticket_%s_%s.png", title, tok)
}
