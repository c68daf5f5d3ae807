package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-realtime-nosql/internal/domain"
)

// messageItem is the stored shape of a chat message (room#<id> / message#<ts>).
type messageItem struct {
	PK             string `dynamodbav:"pk"`
	SK             string `dynamodbav:"sk"`
	RoomID         string `dynamodbav:"room_id"`
	Timestamp      int64  `dynamodbav:"timestamp"`
	SenderID       string `dynamodbav:"sender_id"`
	SenderUsername string `dynamodbav:"sender_username"`
	ProfilePicture string `dynamodbav:"profile_picture,omitempty"`
	Content        string `dynamodbav:"content"`
}

// MessageRepo persists chat messages in the chat table.
type MessageRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewMessageRepo(client *dynamodb.Client, tableName string) *MessageRepo {
	return &MessageRepo{client: client, tableName: tableName}
}

func (r *MessageRepo) Put(ctx context.Context, m *domain.Message) error {
	item, err := attributevalue.MarshalMap(messageItem{
		PK:             roomPK(m.RoomID),
		SK:             messageSK(m.Timestamp),
		RoomID:         m.RoomID,
		Timestamp:      m.Timestamp,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		ProfilePicture: m.ProfilePicture,
		Content:        m.Content,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}
