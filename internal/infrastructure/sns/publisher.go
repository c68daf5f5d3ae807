package sns

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/infrastructure/awsconf"
)

// publishAPI is the subset of the SNS client used here.
type publishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// OfflinePublisher hands notifications for users without a live notification
// connection to an SNS topic (mobile push, e-mail digests and the like subscribe there).
type OfflinePublisher struct {
	client   publishAPI
	topicARN string
}

func NewOfflinePublisher(cfg *config.Config) (*OfflinePublisher, error) {
	awsCfg, err := awsconf.Load(context.Background(), cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	})
	return &OfflinePublisher{client: client, topicARN: cfg.SNSOfflineTopicARN}, nil
}

// PublishOffline publishes payload with a user_id attribute for subscription filter policies.
func (p *OfflinePublisher) PublishOffline(ctx context.Context, userID, kind string, payload []byte) error {
	_, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"user_id": {DataType: aws.String("String"), StringValue: aws.String(userID)},
			"kind":    {DataType: aws.String("String"), StringValue: aws.String(kind)},
		},
	})
	return err
}
