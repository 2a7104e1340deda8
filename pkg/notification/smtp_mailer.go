package notification

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"

	"github.com/financeflow/financeflow/internal/config"
	log "github.com/sirupsen/logrus"
)

type Mail struct {
	To      string
	Subject string
	Html    string
}

type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SmtpMailer struct {
	addr     string
	from     string
	auth     smtp.Auth
	sendMail sendMailFunc
}

func NewSmtpMailer(cfg config.Mail) *SmtpMailer {
	return &SmtpMailer{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from:     cfg.From,
		auth:     smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host),
		sendMail: smtp.SendMail,
	}
}

func (m *SmtpMailer) Send(ctx context.Context, mail Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.sendMail(m.addr, m.auth, m.from, []string{mail.To}, m.message(mail)); err != nil {
		err := fmt.Errorf("error sending email: %w", err)
		log.Error(err)
		return err
	}
	log.Debugf("email %q sent to %s", mail.Subject, mail.To)
	return nil
}

func (m *SmtpMailer) message(mail Mail) []byte {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", mail.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mail.Subject)
	msg.WriteString("MIME-version: 1.0;\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\";\r\n\r\n")
	msg.WriteString(mail.Html)
	return msg.Bytes()
}
