// Package mailer relays user feedback reports to a fixed mailbox over SMTP.
package mailer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
)

var ErrDisabled = errors.New("mail relay is not configured")

type Mailer struct {
	host     string
	port     int
	user     string
	password string
	to       string
}

func New(host string, port int, user, password, to string) *Mailer {
	return &Mailer{host: host, port: port, user: user, password: password, to: to}
}

func (m *Mailer) Enabled() bool {
	return m.host != "" && m.user != "" && m.to != ""
}

// SendReport delivers one report, with an optional photo attachment, as a
// multipart message.
func (m *Mailer) SendReport(username, userEmail, message string, photo []byte, photoName string) error {
	if !m.Enabled() {
		return ErrDisabled
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Report from %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/mixed; boundary=%s\r\n\r\n",
		m.user, m.to, username, w.Boundary())

	text, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return fmt.Errorf("build text part: %w", err)
	}
	fmt.Fprintf(text, "From: %s <%s>\r\n\r\n%s\r\n", username, userEmail, message)

	if len(photo) > 0 {
		part, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/octet-stream"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", photoName)},
		})
		if err != nil {
			return fmt.Errorf("build attachment part: %w", err)
		}
		enc := base64.NewEncoder(base64.StdEncoding, part)
		if _, err := enc.Write(photo); err != nil {
			return fmt.Errorf("encode attachment: %w", err)
		}
		_ = enc.Close()
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	msg := append([]byte(headers), buf.Bytes()...)
	if err := smtp.SendMail(addr, auth, m.user, []string{m.to}, msg); err != nil {
		return fmt.Errorf("send report mail: %w", err)
	}
	return nil
}
