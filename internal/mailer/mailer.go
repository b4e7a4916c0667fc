// Package mailer sends transactional mail for file notifications and
// password resets over plain SMTP.
package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends the two message kinds the system produces. Implementations
// must be safe for concurrent use.
type Mailer interface {
	// SendFileNotification tells a recipient a new file is available to them.
	SendFileNotification(toEmail, toName, fileTitle, uploaderName string, categories []string) error
	// SendPasswordReset delivers a reset link containing the opaque token.
	SendPasswordReset(toEmail, toName, token string) error
}

// SMTP is a Mailer over a single SMTP relay.
type SMTP struct {
	addr     string // host:port
	from     string
	baseURL  string // public URL of the frontend, for reset links
	authUser string
	authPass string
	host     string
}

// NewSMTP configures the relay. Empty authUser disables authentication.
func NewSMTP(addr, from, baseURL, authUser, authPass string) *SMTP {
	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}
	return &SMTP{addr: addr, from: from, baseURL: baseURL, authUser: authUser, authPass: authPass, host: host}
}

func (m *SMTP) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	var auth smtp.Auth
	if m.authUser != "" {
		auth = smtp.PlainAuth("", m.authUser, m.authPass, m.host)
	}
	return smtp.SendMail(m.addr, auth, m.from, []string{to}, []byte(msg))
}

func (m *SMTP) SendFileNotification(toEmail, toName, fileTitle, uploaderName string, categories []string) error {
	body := fmt.Sprintf("Hello %s,\n\nA new file is available to you: %q, uploaded by %s.",
		toName, fileTitle, uploaderName)
	if len(categories) > 0 {
		body += "\nCategories: " + strings.Join(categories, ", ")
	}
	body += fmt.Sprintf("\n\nAccess it at %s/files\n", m.baseURL)
	return m.send(toEmail, "New file available: "+fileTitle, body)
}

func (m *SMTP) SendPasswordReset(toEmail, toName, token string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nA password reset was requested for your account.\n"+
			"Reset it here (valid for 1 hour):\n%s/reset-password?token=%s\n\n"+
			"If you did not request this, ignore this message.\n",
		toName, m.baseURL, token)
	return m.send(toEmail, "Password reset", body)
}

// Discard is a Mailer that drops all messages; used when SMTP is not
// configured and in tests.
type Discard struct{}

func (Discard) SendFileNotification(string, string, string, string, []string) error { return nil }
func (Discard) SendPasswordReset(string, string, string) error                      { return nil }
