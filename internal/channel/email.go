package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/sayaka/teamboard/internal/domain"
)

// EmailConfig holds SMTP submission settings.
type EmailConfig struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

// EmailSender composes a MIME message and submits it over SMTP.
type EmailSender struct {
	cfg EmailConfig
}

// NewEmailSender creates an EmailSender.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Name implements Sender.
func (*EmailSender) Name() string { return "email" }

// Send implements Sender.
func (s *EmailSender) Send(ctx context.Context, target Target, n *domain.Notification) error {
	if target.Email == "" {
		return fmt.Errorf("recipient %d has no email address", target.UserID)
	}

	msg, err := s.compose(target, n)
	if err != nil {
		return fmt.Errorf("compose email: %w", err)
	}

	if err := s.submit(ctx, target.Email, msg); err != nil {
		return fmt.Errorf("submit email to %s: %w", target.Email, err)
	}
	return nil
}

// compose builds an RFC 5322 message with a single text part.
func (s *EmailSender) compose(target Target, n *domain.Notification) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Name: "teamboard", Address: s.cfg.From}})
	h.SetAddressList("To", []*mail.Address{{Name: target.DisplayName, Address: target.Email}})
	h.SetSubject(n.Title)

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}
	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := iw.CreatePart(th)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(pw, n.Message+"\n"); err != nil {
		return nil, err
	}
	pw.Close()
	iw.Close()
	mw.Close()

	return buf.Bytes(), nil
}

// submit speaks SMTP over a context-bounded connection.
func (s *EmailSender) submit(ctx context.Context, to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
