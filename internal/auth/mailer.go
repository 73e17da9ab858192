package auth

import (
	"fmt"

	"github.com/picshare/picshare/internal/config"
	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers verification codes over SMTP.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer constructs a mailer from config.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// SendCode mails a sign-in code to the address.
func (m *SMTPMailer) SendCode(email, code string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", "PicShare verification code")
	msg.SetBody("text/plain", fmt.Sprintf("Your verification code is %s. It is valid for 10 minutes.", code))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send code mail: %w", err)
	}
	return nil
}
