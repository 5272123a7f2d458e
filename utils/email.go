// utils/email.go
package utils

import (
	"fmt"
	"strings"

	"github.com/keighl/postmark"
	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"go-storefront/models"
)

// Mailer sends transactional email.
type Mailer interface {
	SendEmail(toEmail, subject, htmlContent string) error
}

// Email providers accepted by NewEmailService.
const (
	EmailProviderPostmark = "postmark"
	EmailProviderSendGrid = "sendgrid"
)

// EmailConfig selects and configures the email provider. An empty Provider
// picks postmark when a token is set, then sendgrid.
type EmailConfig struct {
	Provider       string
	PostmarkToken  string
	SendGridAPIKey string
	Sender         string
}

// NewEmailService returns the configured Mailer, or a LogMailer when the
// chosen provider has no credentials.
func NewEmailService(cfg EmailConfig) Mailer {
	provider := cfg.Provider
	if provider == "" {
		switch {
		case cfg.PostmarkToken != "":
			provider = EmailProviderPostmark
		case cfg.SendGridAPIKey != "":
			provider = EmailProviderSendGrid
		}
	}

	switch provider {
	case EmailProviderPostmark:
		if cfg.PostmarkToken == "" {
			log.Warn().Msg("POSTMARK_API_TOKEN not set, emails will only be logged")
			return LogMailer{}
		}
		return NewPostmarkService(cfg.PostmarkToken, cfg.Sender)
	case EmailProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			log.Warn().Msg("SENDGRID_API_KEY not set, emails will only be logged")
			return LogMailer{}
		}
		return NewSendGridService(cfg.SendGridAPIKey, cfg.Sender)
	case "":
		log.Warn().Msg("no email provider configured, emails will only be logged")
	default:
		log.Warn().Str("provider", provider).Msg("unknown email provider, emails will only be logged")
	}
	return LogMailer{}
}

// PostmarkService handles sending emails using Postmark
type PostmarkService struct {
	client *postmark.Client
	from   string
}

func NewPostmarkService(apiToken, sender string) *PostmarkService {
	return &PostmarkService{client: postmark.NewClient(apiToken, ""), from: sender}
}

// SendEmail sends a basic email to the specified recipient
func (ps *PostmarkService) SendEmail(toEmail, subject, htmlContent string) error {
	_, err := ps.client.SendEmail(postmark.Email{
		From:     ps.from,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlContent,
		TextBody: stripTags(htmlContent),
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	log.Debug().Str("to", toEmail).Str("subject", subject).Msg("email sent")
	return nil
}

// SendGridService handles sending emails using SendGrid
type SendGridService struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendGridService(apiKey, sender string) *SendGridService {
	return &SendGridService{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Storefront", sender),
	}
}

// SendEmail sends a basic email to the specified recipient
func (es *SendGridService) SendEmail(toEmail, subject, htmlContent string) error {
	message := mail.NewSingleEmail(es.from, subject, mail.NewEmail("", toEmail), stripTags(htmlContent), htmlContent)
	response, err := es.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 300 {
		return fmt.Errorf("failed to send email: sendgrid status %d: %s", response.StatusCode, response.Body)
	}
	log.Debug().Str("to", toEmail).Str("subject", subject).Msg("email sent")
	return nil
}

// LogMailer writes emails to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) SendEmail(toEmail, subject, htmlContent string) error {
	log.Info().Str("to", toEmail).Str("subject", subject).Msg("email not sent, no provider configured")
	return nil
}

// OrderConfirmationEmail renders the confirmation sent after checkout.
func OrderConfirmationEmail(order *models.Order) (subject, htmlContent string) {
	var lines strings.Builder
	for _, item := range order.Items {
		fmt.Fprintf(&lines, "<li>%s x %d: $%.2f</li>", item.Name, item.Quantity, item.Price*float64(item.Quantity))
	}
	subject = "Order Confirmation"
	htmlContent = fmt.Sprintf(
		"<strong>Dear %s,</strong><br><br>Thank you for your purchase! Your order (ID: %s) has been placed.<ul>%s</ul>Total Amount: <strong>$%.2f</strong><br>Payment Method: <strong>%s</strong>",
		order.ShippingDetails.FullName,
		order.ID.Hex(),
		lines.String(),
		order.TotalAmount,
		order.PaymentMethod,
	)
	return subject, htmlContent
}

// PasswordResetEmail renders the reset link email.
func PasswordResetEmail(resetURL string) (subject, htmlContent string) {
	return "Password Reset", fmt.Sprintf(
		"<strong>You requested a password reset.</strong> <a href=\"%s\">Reset your password</a>. The link expires in one hour.",
		resetURL,
	)
}

func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}
