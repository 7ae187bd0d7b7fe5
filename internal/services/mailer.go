package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Mailer delivers board invitation emails. A failed send aborts the
// invite, so implementations must only return nil once the message is
// accepted for delivery.
type Mailer interface {
	SendInvite(ctx context.Context, email, boardTitle, inviteLink string) error
}

// SMTPMailer sends invitation mail through a plain-auth SMTP relay.
type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPMailer creates a mailer for the relay at host:port.
func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from}
}

// SendInvite sends the invitation email with the single-use join link.
func (m *SMTPMailer) SendInvite(ctx context.Context, email, boardTitle, inviteLink string) error {
	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", m.from)
	fmt.Fprintf(&body, "To: %s\r\n", email)
	fmt.Fprintf(&body, "Subject: You have been invited to %s\r\n", boardTitle)
	body.WriteString("\r\n")
	fmt.Fprintf(&body, "You have been invited to the board %q.\r\n\r\n", boardTitle)
	fmt.Fprintf(&body, "Follow this link to join: %s\r\n\r\n", inviteLink)
	body.WriteString("The link is valid for 7 days and can be used once.\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(addr, auth, m.from, []string{email}, []byte(body.String())); err != nil {
		return fmt.Errorf("invite mail to %s not sent: %w", email, err)
	}
	return nil
}

// LogMailer logs invites instead of sending them. Used in development
// and tests when no SMTP relay is configured.
type LogMailer struct{}

// SendInvite logs the invite instead of mailing it.
func (LogMailer) SendInvite(ctx context.Context, email, boardTitle, inviteLink string) error {
	slog.Info("Invite mail (log mailer)",
		"email", email,
		"board_title", boardTitle,
		"invite_link", inviteLink)
	return nil
}
