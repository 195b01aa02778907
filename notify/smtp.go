package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"text/template"
)

// ErrUnknownKind is returned for messages without a template.
var ErrUnknownKind = errors.New("notify template not found")

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var defaultTemplates = map[Kind]mailTemplate{
	KindOTP: mustTemplate(
		"Your verification code",
		`Your verification code is {{.code}}.

It expires in {{.expires_in}}. If you did not try to sign in, you can ignore this email.
`),
	KindMagicLink: mustTemplate(
		"Your sign-in link",
		`Use the link below to sign in:

{{.link}}

The link expires in {{.expires_in}} and can be used once.
`),
	KindInvite: mustTemplate(
		"You have been invited as a clinic administrator",
		`Hello {{.name}},

{{.inviter}} invited you to administer the clinic site. Set your password here:

{{.link}}

The invitation expires in {{.expires_in}}.
`),
	KindReset: mustTemplate(
		"Reset your password",
		`A password reset was requested for your account. Choose a new password here:

{{.link}}

The link expires in {{.expires_in}}. If you did not request this, ignore this email.
`),
}

func mustTemplate(subject, body string) mailTemplate {
	return mailTemplate{
		subject: template.Must(template.New("subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New("body").Option("missingkey=zero").Parse(body)),
	}
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP sends messages through an SMTP relay using PLAIN auth when a username
// is configured.
type SMTP struct {
	config SMTPConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTP validates cfg and returns a sender.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host must be set")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port must be > 0")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address must be set")
	}
	return &SMTP{config: cfg, send: smtp.SendMail}, nil
}

func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := Render(s.config.From, msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	return s.send(addr, auth, s.config.From, []string{msg.To}, raw)
}

// Render builds an RFC 5322 message for msg.
func Render(from string, msg Message) ([]byte, error) {
	tmpl, ok := defaultTemplates[msg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, msg.Kind)
	}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, msg.Data); err != nil {
		return nil, err
	}
	if err := tmpl.body.Execute(&body, msg.Data); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "From: %s\r\n", from)
	fmt.Fprintf(&out, "To: %s\r\n", msg.To)
	fmt.Fprintf(&out, "Subject: %s\r\n", subject.String())
	out.WriteString("MIME-Version: 1.0\r\n")
	out.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	out.WriteString("\r\n")
	out.WriteString(strings.ReplaceAll(body.String(), "\n", "\r\n"))

	return out.Bytes(), nil
}
