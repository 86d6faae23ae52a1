package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/wneessen/go-mail"
)

const resetSubject = "Recuperación de Contraseña - Inventario TI Domino's"

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #006491;">Recuperación de Contraseña</h2>
    <p>Hola {{.Name}},</p>
    <p>Recibimos una solicitud para restablecer la contraseña de tu cuenta en Inventario TI.</p>
    <p style="text-align: center; margin: 30px 0;">
      <a href="{{.Link}}" style="background-color: #E31837; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Restablecer Contraseña</a>
    </p>
    <p>Si el botón no funciona, copia y pega este enlace en tu navegador:</p>
    <p style="word-break: break-all; color: #006491;">{{.Link}}</p>
    <p>Este enlace expira en 1 hora (válido hasta {{.ExpiresAt.UTC.Format "02-01-2006 15:04"}} UTC).</p>
    <p>Si no solicitaste este cambio, puedes ignorar este correo.</p>
    <hr>
    <p style="font-size: 12px; color: #999;">Departamento TI - Domino's Pizza Chile</p>
  </div>
</body>
</html>
`))

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends reset messages through an SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("sender address is required")
	}
	m := &SMTPMailer{cfg: cfg}
	m.send = m.dialAndSend
	return m, nil
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, n ResetNotice) error {
	msg, err := m.buildResetMessage(n)
	if err != nil {
		return err
	}
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) buildResetMessage(n ResetNotice) (*mail.Msg, error) {
	body, err := renderReset(n)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(n.Email); err != nil {
		return nil, fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(resetSubject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func renderReset(n ResetNotice) (string, error) {
	name := n.Name
	if strings.TrimSpace(name) == "" {
		name = n.Email
	}
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, ResetNotice{Email: n.Email, Name: name, Link: n.Link, ExpiresAt: n.ExpiresAt}); err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}
