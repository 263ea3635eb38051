package utils

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

// Mailer sends transactional email through SendGrid.
type Mailer struct {
	apiKey   string
	fromName string
	fromAddr string
	log      *logrus.Logger
}

func NewMailer(apiKey, fromName, fromAddr string, log *logrus.Logger) *Mailer {
	return &Mailer{apiKey: apiKey, fromName: fromName, fromAddr: fromAddr, log: log}
}

// Send delivers a single email. Returns an error on transport failure or a
// 4xx/5xx SendGrid response.
func (m *Mailer) Send(toName, toEmail, subject, textContent, htmlContent string) error {
	if m.apiKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not set")
	}

	from := mail.NewEmail(m.fromName, m.fromAddr)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, textContent, htmlContent)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.Send(message)
	if err != nil {
		m.log.WithError(err).WithField("to", toEmail).Error("failed to send email")
		return err
	}

	if response.StatusCode >= 400 {
		m.log.WithFields(logrus.Fields{
			"to":     toEmail,
			"status": response.StatusCode,
			"body":   response.Body,
		}).Error("sendgrid rejected email")
		return fmt.Errorf("failed to send email, status code: %d", response.StatusCode)
	}

	return nil
}
