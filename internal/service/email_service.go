package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/go-mail/mail/v2"

	"familytodo/internal/config"
)

// Message is a rendered email
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers rendered messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SESAPI is the subset of the SES v2 client used for sending
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES
type SESMailer struct {
	client    SESAPI
	fromEmail string
	fromName  string
}

// NewSESMailer loads the default AWS configuration for region
func NewSESMailer(ctx context.Context, region, fromEmail, fromName string) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SESMailer{client: sesv2.NewFromConfig(cfg), fromEmail: fromEmail, fromName: fromName}, nil
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	fromAddress := m.fromEmail
	if m.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(msg.HTMLBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(msg.TextBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	if result.MessageId != nil {
		slog.DebugContext(ctx, "ses message accepted", "message_id", *result.MessageId)
	}
	return nil
}

// SMTPSender is the subset of *mail.Dialer used for sending
type SMTPSender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	dialer SMTPSender
	sender string
}

// NewSMTPMailer creates a mailer for the given relay
func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	return &SMTPMailer{dialer: mail.NewDialer(host, port, username, password), sender: sender}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := mail.NewMessage()
	message.SetHeader("To", msg.To)
	message.SetHeader("From", m.sender)
	message.SetHeader("Subject", msg.Subject)
	message.SetBody("text/plain", msg.TextBody)
	message.AddAlternative("text/html", msg.HTMLBody)

	if err := m.dialer.DialAndSend(message); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return nil
}

var inviteTemplate = template.Must(template.New("invite").Parse(`
{{define "subject"}}{{.Inviter}} invited you to join {{.Family}}{{end}}

{{define "plainBody"}}Hi,

{{.Inviter}} invited you to share tasks with the "{{.Family}}" family.

Sign in and join with this referral code: {{.Code}}
{{end}}

{{define "htmlBody"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi,</p>
	<p>{{.Inviter}} invited you to share tasks with the <strong>{{.Family}}</strong> family.</p>
	<p>Sign in and join with this referral code:</p>
	<p style="font-size: 24px; letter-spacing: 4px;"><strong>{{.Code}}</strong></p>
</body>
</html>
{{end}}
`))

// EmailService renders and sends application emails
type EmailService struct {
	mailer Mailer
}

// NewEmailService wraps mailer. A nil mailer disables delivery.
func NewEmailService(mailer Mailer) *EmailService {
	return &EmailService{mailer: mailer}
}

// NewEmailServiceFromConfig picks SES when a sender address is configured,
// then SMTP when a relay host is configured, and otherwise disables email
func NewEmailServiceFromConfig(ctx context.Context, cfg *config.Config) (*EmailService, error) {
	switch {
	case cfg.SESFromEmail != "":
		mailer, err := NewSESMailer(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
		if err != nil {
			return nil, err
		}
		slog.Info("email service enabled", "transport", "ses", "from", cfg.SESFromEmail, "region", cfg.AWSRegion)
		return NewEmailService(mailer), nil
	case cfg.SMTPHost != "":
		slog.Info("email service enabled", "transport", "smtp", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return NewEmailService(NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPSender)), nil
	default:
		slog.Info("email service disabled: neither SES_FROM_EMAIL nor SMTP_HOST configured")
		return NewEmailService(nil), nil
	}
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.mailer != nil
}

// SendFamilyInvite emails a referral code
func (s *EmailService) SendFamilyInvite(ctx context.Context, to, inviter, familyName, code string) error {
	if !s.IsEnabled() {
		return ErrEmailDisabled
	}

	data := struct {
		Inviter string
		Family  string
		Code    string
	}{inviter, familyName, code}

	msg := Message{To: to}
	parts := []struct {
		name string
		dst  *string
	}{
		{"subject", &msg.Subject},
		{"plainBody", &msg.TextBody},
		{"htmlBody", &msg.HTMLBody},
	}
	for _, p := range parts {
		var buf bytes.Buffer
		if err := inviteTemplate.ExecuteTemplate(&buf, p.name, data); err != nil {
			return fmt.Errorf("failed to render %s: %w", p.name, err)
		}
		*p.dst = buf.String()
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		return err
	}
	slog.InfoContext(ctx, "family invite sent", "to", to)
	return nil
}
