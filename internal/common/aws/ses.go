// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the part of the SES client used here; *ses.Client satisfies it.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// EmailSender sends plain text plus HTML email from a fixed address.
type EmailSender struct {
	api  SESAPI
	from string
}

func NewEmailSender(api SESAPI, from string) *EmailSender {
	return &EmailSender{api: api, from: from}
}

// NewSESEmailSender builds an EmailSender backed by a real SES client.
func NewSESEmailSender(cfg aws.Config, from string) *EmailSender {
	return NewEmailSender(ses.NewFromConfig(cfg), from)
}

// Send returns the SES message id.
func (s *EmailSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) (string, error) {
	if htmlBody == "" {
		htmlBody = textBody
	}
	out, err := s.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(textBody)},
				Html: &types.Content{Data: aws.String(htmlBody)},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
