// Package email envía los códigos OTP. SMTPSender usa go-mail; NopSender sirve para dev/tests.
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/tenantauth/internal/observability/logger"
)

// Message es un email multipart (texto + html).
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender envía un mensaje. Implementaciones: SMTPSender, NopSender.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
	Timeout            time.Duration
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	log := logger.From(ctx).With(logger.Component("email.smtp"), logger.Email(msg.To))

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	// multipart/alternative: txt + html
	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host, InsecureSkipVerify: s.InsecureSkipVerify}
	if s.Timeout > 0 {
		d.Timeout = s.Timeout
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = mail.MandatoryStartTLS
	}

	if err := d.DialAndSend(m); err != nil {
		log.Warn("smtp send failed", logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info("smtp send ok")
	return nil
}

// NopSender descarta los mensajes. Solo loguea el destinatario enmascarado.
type NopSender struct{}

func (NopSender) Send(ctx context.Context, msg Message) error {
	logger.From(ctx).Debug("email discarded (nop sender)", logger.Email(msg.To))
	return nil
}

// ─── templates ───

// OTPVars son las variables del template de código de verificación.
type OTPVars struct {
	Tenant    string
	Code      string
	ExpiresIn time.Duration
}

var (
	otpText = texttemplate.Must(texttemplate.New("otp.txt").Parse(
		`Tu código de verificación para {{.Tenant}} es {{.Code}}.
Vence en {{.ExpiresIn}}. Si no lo pediste, ignorá este mensaje.
`))
	otpHTML = htmltemplate.Must(htmltemplate.New("otp.html").Parse(
		`<p>Tu código de verificación para <b>{{.Tenant}}</b> es:</p>
<p style="font-size:24px;letter-spacing:4px"><b>{{.Code}}</b></p>
<p>Vence en {{.ExpiresIn}}. Si no lo pediste, ignorá este mensaje.</p>
`))
)

// RenderOTP arma el mensaje del código OTP.
func RenderOTP(to string, vars OTPVars) (Message, error) {
	var txt, html bytes.Buffer
	if err := otpText.Execute(&txt, vars); err != nil {
		return Message{}, fmt.Errorf("render otp text: %w", err)
	}
	if err := otpHTML.Execute(&html, vars); err != nil {
		return Message{}, fmt.Errorf("render otp html: %w", err)
	}
	return Message{
		To:       to,
		Subject:  "Tu código de verificación",
		TextBody: txt.String(),
		HTMLBody: html.String(),
	}, nil
}
