package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService defines the interface for sending notification emails
type EmailService interface {
	SendEnrollmentEmail(ctx context.Context, email, name, courseTitle string) error
	SendCertificateEmail(ctx context.Context, email, name, courseTitle, certificateNumber string) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendEnrollmentEmail confirms a new course enrollment
func (s *AWSSESEmailService) SendEnrollmentEmail(ctx context.Context, email, name, courseTitle string) error {
	subject := fmt.Sprintf("You're enrolled in %s", courseTitle)

	textBody := fmt.Sprintf(`Hi %s,

You're enrolled in %s.

Head to your dashboard to start the first lesson. Your progress is saved
automatically as you complete lessons.

This is an automated message. Please do not reply to this email.
`, name, courseTitle)

	return s.send(ctx, email, subject, textBody)
}

// SendCertificateEmail notifies the user that their certificate has
// been issued
func (s *AWSSESEmailService) SendCertificateEmail(ctx context.Context, email, name, courseTitle, certificateNumber string) error {
	subject := fmt.Sprintf("Your certificate for %s", courseTitle)

	textBody := fmt.Sprintf(`Hi %s,

Congratulations on completing %s!

Your certificate has been issued:

    Certificate number: %s

Anyone can verify this certificate using its number on the verification
page.

This is an automated message. Please do not reply to this email.
`, name, courseTitle, certificateNumber)

	return s.send(ctx, email, subject, textBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, email, subject, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", *result.MessageId))

	return nil
}

// NoopEmailService logs instead of sending. Used when email delivery is
// disabled in configuration.
type NoopEmailService struct {
	logger *slog.Logger
}

func NewNoopEmailService(logger *slog.Logger) *NoopEmailService {
	return &NoopEmailService{logger: logger}
}

func (s *NoopEmailService) SendEnrollmentEmail(ctx context.Context, email, name, courseTitle string) error {
	s.logger.Info("email delivery disabled, skipping enrollment email",
		slog.String("course_title", courseTitle))
	return nil
}

func (s *NoopEmailService) SendCertificateEmail(ctx context.Context, email, name, courseTitle, certificateNumber string) error {
	s.logger.Info("email delivery disabled, skipping certificate email",
		slog.String("course_title", courseTitle))
	return nil
}
