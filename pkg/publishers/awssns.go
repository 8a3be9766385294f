package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient is the subset of the SNS client the sender needs.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type awsSNSSender struct {
	topicARN string
	client   snsClient
	log      Logger
}

func newAWSSNSSender(ctx context.Context, cfg *AWSSNSPublisherConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("aws sns configuration is missing")
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.AWSCredentials)
	if err != nil {
		return nil, err
	}

	return &awsSNSSender{
		topicARN: cfg.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

// Send publishes the event to the topic. The subject carries the provider id for email subscribers.
func (s *awsSNSSender) Send(ctx context.Context, evt Event) error {
	body, attrs, err := encodeEvent(evt)
	if err != nil {
		return err
	}

	msgAttrs := make(map[string]types.MessageAttributeValue, len(attrs))
	for k, v := range attrs {
		msgAttrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	resp, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Subject:           aws.String(fmt.Sprintf("pressfeed: %s updated", evt.ProviderID)),
		Message:           aws.String(body),
		MessageAttributes: msgAttrs,
	})
	if err != nil {
		return fmt.Errorf("publish to sns: %w", err)
	}

	s.log.DebugObj("sns publisher delivered event", "publisher_sns_delivery", map[string]any{
		"provider_id": evt.ProviderID,
		"message_id":  aws.ToString(resp.MessageId),
	})
	return nil
}
