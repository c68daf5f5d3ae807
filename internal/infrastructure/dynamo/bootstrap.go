package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-realtime-nosql/internal/config"
	"github.com/go-realtime-nosql/internal/pkg/log"
)

// Bootstrap creates the connections and chat tables if they don't already exist.
// Safe to call on every startup; existing tables are skipped.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) {
	createTable(ctx, client, connectionsTableInput(tables.Connections))
	enableTTL(ctx, client, connectionsTTLInput(tables.Connections))
	createTable(ctx, client, chatTableInput(tables.Chat))
}

// connectionsTableInput keys rows by (room_id, connection_id) with GSIs for
// per-user and per-connection lookups.
func connectionsTableInput(name string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrRoomID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrConnectionID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrUserID), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrRoomID), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrConnectionID), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			gsi(indexUserID, attrUserID, ""),
			gsi(indexConnectionID, attrConnectionID, ""),
		},
	}
}

func connectionsTTLInput(name string) *dynamodb.UpdateTimeToLiveInput {
	return &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(name),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(fieldExpiresAt),
		},
	}
}

// chatTableInput is the single-table layout for messages, unread markers and
// room membership.
func chatTableInput(name string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrSK), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrSK), KeyType: types.KeyTypeRange},
		},
	}
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) {
	l := log.Ctx(ctx)
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			l.Warn().Err(err).Str("table", *input.TableName).Msg("could not create table")
		}
		return
	}
	l.Info().Str("table", *input.TableName).Msg("created table")
}

func enableTTL(ctx context.Context, client *dynamodb.Client, input *dynamodb.UpdateTimeToLiveInput) {
	if _, err := client.UpdateTimeToLive(ctx, input); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str("table", *input.TableName).Msg("could not enable TTL")
	}
}
