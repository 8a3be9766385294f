package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("m-2")}, nil
}

func TestSQSSenderSendsEvent(t *testing.T) {
	t.Parallel()

	client := &fakeSQS{}
	sender := &awsSQSSender{queueURL: "https://sqs/q", client: client, log: ensureLogger(nil)}

	require.NoError(t, sender.Send(context.Background(), sampleEvent()))
	require.NotNil(t, client.input)
	assert.Equal(t, "https://sqs/q", aws.ToString(client.input.QueueUrl))
	assert.Equal(t, "daiichisankyo", aws.ToString(client.input.MessageAttributes["provider_id"].StringValue))
	assert.Equal(t, "1", aws.ToString(client.input.MessageAttributes["item_count"].StringValue))

	var evt Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(client.input.MessageBody)), &evt))
	assert.Equal(t, "rss_output/DaiichiSankyo.xml", evt.OutputPath)
}

func TestSQSSenderWrapsError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	pub := &queuePublisher{
		id:       "sqs",
		provider: QueueProviderAWSSQS,
		sender:   &awsSQSSender{queueURL: "q", client: &fakeSQS{err: boom}, log: ensureLogger(nil)},
	}

	err := pub.Publish(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "queue provider aws-sqs")
	assert.NoError(t, pub.Close())
}

func TestSNSSenderSendsEvent(t *testing.T) {
	t.Parallel()

	client := &fakeSNS{}
	sender := &awsSNSSender{topicARN: "arn:aws:sns:ap-northeast-1:1:feeds", client: client, log: ensureLogger(nil)}

	require.NoError(t, sender.Send(context.Background(), sampleEvent()))
	assert.Equal(t, "arn:aws:sns:ap-northeast-1:1:feeds", aws.ToString(client.input.TopicArn))
	assert.Equal(t, "pressfeed: daiichisankyo updated", aws.ToString(client.input.Subject))
	assert.Contains(t, aws.ToString(client.input.Message), `"provider_id":"daiichisankyo"`)
}

func TestQueuePublisherAzureRejected(t *testing.T) {
	t.Parallel()

	_, err := newQueuePublisher(context.Background(), PublisherConfig{
		ID: "az", Type: TypeQueue, Queue: &QueuePublisherConfig{Provider: QueueProviderAzure},
	}, nil)
	assert.ErrorContains(t, err, "not implemented")
}
