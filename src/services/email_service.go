package services

import (
	"context"
	"fmt"
	"time"

	"github.com/adaptivestartup/webhooks-platform/src/models"
	"github.com/adaptivestartup/webhooks-platform/src/templates"
	"github.com/mailgun/mailgun-go/v4"
	"github.com/rs/zerolog/log"
)

// EmailService sends operator alert emails via Mailgun
type EmailService struct {
	mg        *mailgun.MailgunImpl
	fromEmail string
	fromName  string
	domain    string
}

// NewEmailService creates a new email service with Mailgun configuration
func NewEmailService(domain, apiKey, fromEmail, fromName string) *EmailService {
	mg := mailgun.NewMailgun(domain, apiKey)
	mg.SetAPIBase(mailgun.APIBaseEU) // Use EU endpoint for GDPR compliance

	return &EmailService{
		mg:        mg,
		fromEmail: fromEmail,
		fromName:  fromName,
		domain:    domain,
	}
}

// getDefaultAlertConfig returns default alert configuration as fallback
func getDefaultAlertConfig() *templates.AlertConfig {
	config := &templates.AlertConfig{}
	config.Branding.Name = "Adaptive Startup Webhooks"
	config.Branding.Website = "https://adaptivestartup.io"
	config.Branding.DashboardURL = "https://adaptivestartup.io/ops/deliveries"
	config.Design.PrimaryColor = "#2563EB"
	config.Design.TextColor = "#0a0a0a"
	config.Design.MutedColor = "#777777"
	config.Design.CodeBg = "#f5f5f5"
	config.Design.BorderColor = "#e5e5e5"
	config.Subjects.DeadLetter = "Webhook delivery dead-lettered"
	config.DeadLetter.Intro = "A webhook delivery exhausted its attempts and was moved to the dead-letter queue."
	config.DeadLetter.ButtonText = "Open delivery queue"
	config.DeadLetter.Outro = "The delivery can be requeued from the operations dashboard once the receiving endpoint is healthy."
	return config
}

// SendDeadLetterAlert notifies the operator that a delivery was dead-lettered
func (s *EmailService) SendDeadLetterAlert(ctx context.Context, toEmail string, delivery *models.Delivery, sub *models.WebhookSubscription) error {
	config, err := templates.LoadAlertConfig()
	if err != nil {
		config = getDefaultAlertConfig()
	}

	lastError := ""
	if delivery.LastError != nil {
		lastError = *delivery.LastError
	}

	data := templates.DeadLetterData{
		BrandName:       config.Branding.Name,
		Website:         config.Branding.Website,
		DashboardURL:    config.Branding.DashboardURL,
		DeliveryID:      delivery.ID.String(),
		SubscriptionID:  delivery.SubscriptionID.String(),
		SubscriptionURL: sub.URL,
		EventType:       delivery.EventType,
		Attempts:        delivery.Attempts,
		LastError:       lastError,
		Intro:           config.DeadLetter.Intro,
		ButtonText:      config.DeadLetter.ButtonText,
		Outro:           config.DeadLetter.Outro,
		PrimaryColor:    config.Design.PrimaryColor,
		TextColor:       config.Design.TextColor,
		MutedColor:      config.Design.MutedColor,
		CodeBg:          config.Design.CodeBg,
		BorderColor:     config.Design.BorderColor,
	}

	htmlBody, err := templates.RenderDeadLetterHTML(data)
	if err != nil {
		return fmt.Errorf("failed to render alert html: %w", err)
	}
	textBody, err := templates.RenderDeadLetterText(data)
	if err != nil {
		return fmt.Errorf("failed to render alert text: %w", err)
	}

	message := s.mg.NewMessage(
		fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail),
		config.Subjects.DeadLetter,
		textBody,
		toEmail,
	)
	message.SetHtml(htmlBody)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, _, err = s.mg.Send(ctxWithTimeout, message)
	if err != nil {
		return fmt.Errorf("failed to send dead letter alert: %w", err)
	}

	log.Info().
		Str("delivery_id", delivery.ID.String()).
		Str("to", toEmail).
		Msg("Dead letter alert sent")

	return nil
}
