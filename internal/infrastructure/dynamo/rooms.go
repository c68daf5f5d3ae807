package dynamo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-realtime-nosql/internal/domain"
	"github.com/go-realtime-nosql/internal/pkg/id"
)

type memberItem struct {
	PK       string `dynamodbav:"pk"`
	SK       string `dynamodbav:"sk"`
	RoomID   string `dynamodbav:"room_id"`
	UserID   string `dynamodbav:"user_id"`
	JoinedAt int64  `dynamodbav:"joined_at"`
}

type privateRoomItem struct {
	PK           string   `dynamodbav:"pk"`
	SK           string   `dynamodbav:"sk"`
	RoomID       string   `dynamodbav:"room_id"`
	Participants []string `dynamodbav:"participants,stringset"`
	CreatedAt    int64    `dynamodbav:"created_at"`
}

// RoomRepo reads room membership from the chat table and resolves private rooms.
type RoomRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRoomRepo(client *dynamodb.Client, tableName string) *RoomRepo {
	return &RoomRepo{client: client, tableName: tableName}
}

// Members returns the user ids of every member of roomID.
func (r *RoomRepo) Members(ctx context.Context, roomID string) ([]string, error) {
	var members []string
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("pk = :pk AND begins_with(sk, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     strVal(roomPK(roomID)),
			":prefix": strVal(prefixMember),
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []memberItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal members: %w", err)
		}
		for _, it := range items {
			members = append(members, it.UserID)
		}
	}
	return members, nil
}

// IsMember reports whether userID holds a membership row in roomID.
func (r *RoomRepo) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       chatKey(roomPK(roomID), memberSK(userID)),
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

// ResolvePrivate returns the room shared by exactly the given participants,
// creating it and its membership rows when none exists. Concurrent callers with
// the same participant set converge on one room.
func (r *RoomRepo) ResolvePrivate(ctx context.Context, participants []string) (string, error) {
	users := NormalizeParticipants(participants)
	if len(users) < 2 {
		return "", fmt.Errorf("private room needs at least two participants: %w", domain.ErrBadRequest)
	}
	key := privateRoomKey(users)

	roomID, err := r.lookupPrivate(ctx, key)
	if err == nil {
		return roomID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return "", err
	}

	roomID = id.New()
	now := time.Now().UTC().UnixMilli()
	index, err := attributevalue.MarshalMap(privateRoomItem{
		PK: key, SK: skPrivateRoom, RoomID: roomID, Participants: users, CreatedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("marshal private room: %w", err)
	}
	items := []types.TransactWriteItem{{
		Put: &types.Put{
			TableName:           aws.String(r.tableName),
			Item:                index,
			ConditionExpression: aws.String("attribute_not_exists(pk)"),
		},
	}}
	for _, u := range users {
		member, err := attributevalue.MarshalMap(memberItem{
			PK: roomPK(roomID), SK: memberSK(u), RoomID: roomID, UserID: u, JoinedAt: now,
		})
		if err != nil {
			return "", fmt.Errorf("marshal member: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{TableName: aws.String(r.tableName), Item: member},
		})
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		// Another resolver won the race; its room is the canonical one.
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return r.lookupPrivate(ctx, key)
		}
		return "", err
	}
	return roomID, nil
}

func (r *RoomRepo) lookupPrivate(ctx context.Context, key string) (string, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            chatKey(key, skPrivateRoom),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", err
	}
	if out.Item == nil {
		return "", fmt.Errorf("private room not found: %w", domain.ErrNotFound)
	}
	var it privateRoomItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return "", err
	}
	return it.RoomID, nil
}

// NormalizeParticipants sorts and de-duplicates user ids, dropping empty ones.
func NormalizeParticipants(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, u := range ids {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// privateRoomKey hashes the normalized participant set into the index partition key.
func privateRoomKey(ids []string) string {
	sum := sha256.Sum256([]byte(strings.Join(NormalizeParticipants(ids), "\x00")))
	return prefixPrivate + hex.EncodeToString(sum[:])
}
