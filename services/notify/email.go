package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"mhrs-tracker/services/tracker"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mhrs-tracker/services/notify")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Email mails events to a fixed list of recipients.
type Email struct {
	config SmtpConfig
	to     []string
	send   func(mail *email.Email, addr string, auth smtp.Auth) error
}

func NewEmail(config SmtpConfig, to []string) Email {
	return Email{
		config: config,
		to:     to,
		send: func(mail *email.Email, addr string, auth smtp.Auth) error {
			return mail.Send(addr, auth)
		},
	}
}

func (e Email) Notify(ctx context.Context, event tracker.Event) error {
	ctx, span := tracer.Start(ctx, "Email:Notify")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("MHRS Tracker <%s>", e.config.EmailAddress)
	mail.To = e.to
	mail.Subject = Subject(event)
	mail.Text = []byte(Text(event) + "\n")

	addr := fmt.Sprintf("%s:%d", e.config.Server, e.config.Port)
	err := e.send(mail, addr, smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = e.send(mail, addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
