package mailer

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESSender delivers messages through AWS Simple Email Service.
type SESSender struct {
	client *ses.Client
	from   string
}

// NewSESSender loads AWS configuration for the region and returns a sender.
func NewSESSender(ctx context.Context, region, from string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{client: ses.NewFromConfig(cfg), from: from}, nil
}

// Send delivers the message via SES.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	input := &ses.SendEmailInput{
		Source: &s.from,
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: &msg.Subject},
			Body: &types.Body{
				Text: &types.Content{Data: &msg.Body},
			},
		},
	}
	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send to %s: %w", msg.To, err)
	}
	return nil
}
