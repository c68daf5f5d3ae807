package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-realtime-nosql/internal/domain"
)

// unreadItem is the stored shape of an unread marker (USER#<id> / UNREAD#<ts>).
type unreadItem struct {
	PK             string `dynamodbav:"pk"`
	SK             string `dynamodbav:"sk"`
	UserID         string `dynamodbav:"user_id"`
	Timestamp      int64  `dynamodbav:"timestamp"`
	RoomID         string `dynamodbav:"room_id"`
	SenderID       string `dynamodbav:"sender_id"`
	SenderUsername string `dynamodbav:"sender_username"`
	ProfilePicture string `dynamodbav:"profile_picture,omitempty"`
	Content        string `dynamodbav:"content"`
}

func (it unreadItem) marker() domain.UnreadMarker {
	return domain.UnreadMarker{
		UserID:         it.UserID,
		Timestamp:      it.Timestamp,
		RoomID:         it.RoomID,
		SenderID:       it.SenderID,
		SenderUsername: it.SenderUsername,
		ProfilePicture: it.ProfilePicture,
		Content:        it.Content,
	}
}

// UnreadRepo stores per-user unread markers in the chat table.
type UnreadRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUnreadRepo(client *dynamodb.Client, tableName string) *UnreadRepo {
	return &UnreadRepo{client: client, tableName: tableName}
}

// Put writes the marker; writing the same (user, timestamp) twice keeps one item.
func (r *UnreadRepo) Put(ctx context.Context, m *domain.UnreadMarker) error {
	item, err := attributevalue.MarshalMap(unreadItem{
		PK:             userPK(m.UserID),
		SK:             unreadSK(m.Timestamp),
		UserID:         m.UserID,
		Timestamp:      m.Timestamp,
		RoomID:         m.RoomID,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		ProfilePicture: m.ProfilePicture,
		Content:        m.Content,
	})
	if err != nil {
		return fmt.Errorf("marshal unread marker: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListByUser returns the user's markers oldest first. A non-empty roomID narrows
// the result to that room.
func (r *UnreadRepo) ListByUser(ctx context.Context, userID, roomID string) ([]domain.UnreadMarker, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strVal(userPK(userID)),
			":prefix": strVal(prefixUnread),
		},
	}
	if roomID != "" {
		input.FilterExpression = aws.String("room_id = :rid")
		input.ExpressionAttributeValues[":rid"] = strVal(roomID)
	}

	var markers []domain.UnreadMarker
	p := dynamodb.NewQueryPaginator(r.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []unreadItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal unread markers: %w", err)
		}
		for _, it := range items {
			markers = append(markers, it.marker())
		}
	}
	return markers, nil
}

// Delete removes one marker. Deleting a missing marker is not an error.
func (r *UnreadRepo) Delete(ctx context.Context, userID string, ts int64) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       chatKey(userPK(userID), unreadSK(ts)),
	})
	return err
}
