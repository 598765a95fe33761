package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	mail "github.com/go-mail/mail"

	"github.com/kovacsdavid/obvia/internal/observability/logger"
)

// SMTPNotifier envía alerts por SMTP al administrador.
type SMTPNotifier struct {
	Host               string
	Port               int
	From               string
	To                 string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool
	Timeout            time.Duration

	send func(d *mail.Dialer, m *mail.Message) error
}

// NewSMTPNotifier crea un SMTPNotifier con TLS "auto" y timeout de 10s.
func NewSMTPNotifier(host string, port int, from, to, user, pass string) *SMTPNotifier {
	return &SMTPNotifier{
		Host:    host,
		Port:    port,
		From:    from,
		To:      to,
		User:    user,
		Pass:    pass,
		TLSMode: "auto",
		Timeout: 10 * time.Second,
		send:    func(d *mail.Dialer, m *mail.Message) error { return d.DialAndSend(m) },
	}
}

func (s *SMTPNotifier) message(a Alert) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", "[obvia] "+a.Subject)
	m.SetBody("text/plain", a.Text())
	return m
}

func (s *SMTPNotifier) dialer() *mail.Dialer {
	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.Timeout = s.Timeout
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}
	return d
}

// Notify envía el alert. El contexto sólo aporta el logger: go-mail no es cancelable.
func (s *SMTPNotifier) Notify(ctx context.Context, a Alert) error {
	log := logger.From(ctx).With(
		logger.Component("notify.smtp"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
	)

	if err := s.send(s.dialer(), s.message(a)); err != nil {
		log.Error("admin notification failed", logger.String("subject", a.Subject), logger.Err(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info("admin notification sent", logger.String("subject", a.Subject))
	return nil
}
