package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// loadAWSConfig resolves region and credentials; static keys win over the default chain.
func loadAWSConfig(ctx context.Context, c AWSCredentials) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(c.Region)}
	if c.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// encodeEvent returns the JSON body and the string attributes shared by all queue sinks.
func encodeEvent(evt Event) (string, map[string]string, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return "", nil, fmt.Errorf("marshal event: %w", err)
	}
	attrs := map[string]string{
		"provider_id": evt.ProviderID,
		"item_count":  strconv.Itoa(evt.ItemCount),
	}
	return string(payload), attrs, nil
}
