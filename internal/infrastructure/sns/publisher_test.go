package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	return &sns.PublishOutput{}, args.Error(0)
}

func TestPublishOffline_SetsAttributes(t *testing.T) {
	client := new(mockSNS)
	client.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return *in.TopicArn == "arn:aws:sns:us-east-1:000000000000:offline" &&
			*in.Message == `{"type":"newMessage"}` &&
			*in.MessageAttributes["user_id"].StringValue == "u2" &&
			*in.MessageAttributes["kind"].StringValue == "newMessage"
	})).Return(nil)

	p := &OfflinePublisher{client: client, topicARN: "arn:aws:sns:us-east-1:000000000000:offline"}
	assert.NoError(t, p.PublishOffline(context.Background(), "u2", "newMessage", []byte(`{"type":"newMessage"}`)))
	client.AssertExpectations(t)
}

func TestPublishOffline_PropagatesError(t *testing.T) {
	client := new(mockSNS)
	client.On("Publish", mock.Anything, mock.Anything).Return(errors.New("boom"))

	p := &OfflinePublisher{client: client, topicARN: "arn"}
	assert.EqualError(t, p.PublishOffline(context.Background(), "u2", "newMessage", nil), "boom")
}
