package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-realtime-nosql/internal/domain"
)

// ConnectionRepo is the connection registry: typed DynamoDB operations for the
// connections table (PK room_id, SK connection_id).
type ConnectionRepo struct {
	client    *dynamodb.Client
	tableName string
	ttl       time.Duration
}

// NewConnectionRepo builds the registry. A positive ttl stamps expires_at on every
// bind so rows of transports that vanished silently are eventually reaped.
func NewConnectionRepo(client *dynamodb.Client, tableName string, ttl time.Duration) *ConnectionRepo {
	return &ConnectionRepo{client: client, tableName: tableName, ttl: ttl}
}

// Bind upserts the (room, connection) row. Binding the same pair twice leaves one row.
func (r *ConnectionRepo) Bind(ctx context.Context, c *domain.Connection) error {
	now := time.Now().UTC()
	if c.ConnectedAt == 0 {
		c.ConnectedAt = now.UnixMilli()
	}
	if r.ttl > 0 {
		c.ExpiresAt = now.Add(r.ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal connection: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Unbind deletes the (room, connection) row. Deleting a missing row is not an error.
func (r *ConnectionRepo) Unbind(ctx context.Context, roomID, connectionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(attrRoomID, roomID, attrConnectionID, connectionID),
	})
	return err
}

// Touch pushes the row's expiry forward; used by keep-alive pings.
func (r *ConnectionRepo) Touch(ctx context.Context, roomID, connectionID string) error {
	if r.ttl <= 0 {
		return nil
	}
	now := time.Now().UTC()
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldExpiresAt:  now.Add(r.ttl).Unix(),
		fieldLastSeenAt: now.UnixMilli(),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       compositeKey(attrRoomID, roomID, attrConnectionID, connectionID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(" + attrConnectionID + ")"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("connection not bound: %w", domain.ErrNotFound)
		}
	}
	return err
}

// FindByUser lists a user's connections via the user_id GSI. An empty channelType
// matches every type.
func (r *ConnectionRepo) FindByUser(ctx context.Context, userID string, channelType domain.ChannelType) ([]domain.Connection, error) {
	conns, err := r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexUserID),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": strVal(userID),
		},
	})
	if err != nil {
		return nil, err
	}
	return filterChannel(conns, channelType), nil
}

// ListByConnection returns every row a connection id is bound under.
func (r *ConnectionRepo) ListByConnection(ctx context.Context, connectionID string) ([]domain.Connection, error) {
	return r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexConnectionID),
		KeyConditionExpression: aws.String("connection_id = :cid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": strVal(connectionID),
		},
	})
}

// FindByConnection returns the chat-room row a connection is bound to.
// Returns ErrNotFound when the connection is in no room.
func (r *ConnectionRepo) FindByConnection(ctx context.Context, connectionID string) (*domain.Connection, error) {
	conns, err := r.ListByConnection(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	c, ok := roomBinding(conns)
	if !ok {
		return nil, fmt.Errorf("connection %s not in a room: %w", connectionID, domain.ErrNotFound)
	}
	return c, nil
}

// roomBinding picks the chat-room row out of everything a connection is bound
// under, skipping notification links and user-scope anchors.
func roomBinding(rows []domain.Connection) (*domain.Connection, bool) {
	for i := range rows {
		if rows[i].ChannelType != domain.ChannelNotifications && !domain.IsUserScope(rows[i].RoomID) {
			return &rows[i], true
		}
	}
	return nil, false
}

// filterChannel keeps rows of channelType; empty keeps all.
func filterChannel(rows []domain.Connection, channelType domain.ChannelType) []domain.Connection {
	if channelType == "" {
		return rows
	}
	out := make([]domain.Connection, 0, len(rows))
	for _, c := range rows {
		if c.ChannelType == channelType {
			out = append(out, c)
		}
	}
	return out
}

// ListByRoom returns every connection bound to roomID.
func (r *ConnectionRepo) ListByRoom(ctx context.Context, roomID string) ([]domain.Connection, error) {
	return r.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("room_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": strVal(roomID),
		},
	})
}

func (r *ConnectionRepo) queryAll(ctx context.Context, input *dynamodb.QueryInput) ([]domain.Connection, error) {
	var conns []domain.Connection
	p := dynamodb.NewQueryPaginator(r.client, input)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Connection
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal connections: %w", err)
		}
		conns = append(conns, batch...)
	}
	return conns, nil
}
