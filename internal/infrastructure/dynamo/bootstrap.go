package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/config"
)

// TableCreator is the client surface Bootstrap needs.
type TableCreator interface {
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

func strAttr(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
}

func hashKey(name string) []types.KeySchemaElement {
	return []types.KeySchemaElement{{AttributeName: aws.String(name), KeyType: types.KeyTypeHash}}
}

// Tables describes every table and index the stores rely on.
func Tables(t config.DynamoTables) []*dynamodb.CreateTableInput {
	return []*dynamodb.CreateTableInput{
		{
			TableName:              aws.String(t.Users),
			AttributeDefinitions:   []types.AttributeDefinition{strAttr("user_id"), strAttr("role")},
			KeySchema:              hashKey("user_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{gsi(indexUserRole, "role", "")},
		},
		{
			TableName: aws.String(t.Items),
			AttributeDefinitions: []types.AttributeDefinition{
				strAttr("item_id"), strAttr(fieldFoundBy), strAttr(fieldClaimedBy), strAttr("drop_off_location_id"),
			},
			KeySchema: hashKey("item_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexItemFoundBy, fieldFoundBy, ""),
				gsi(indexItemClaimedBy, fieldClaimedBy, ""),
				gsi(indexItemLocation, "drop_off_location_id", ""),
			},
		},
		{
			TableName:            aws.String(t.Claims),
			AttributeDefinitions: []types.AttributeDefinition{strAttr("claim_id"), strAttr("item_id"), strAttr("user_id"), strAttr("created_at")},
			KeySchema:            hashKey("claim_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexClaimItem, "item_id", "created_at"),
				gsi(indexClaimUser, "user_id", "created_at"),
			},
		},
		{
			TableName:            aws.String(t.Notifications),
			AttributeDefinitions: []types.AttributeDefinition{strAttr("notification_id"), strAttr("user_id"), strAttr("item_id"), strAttr("created_at")},
			KeySchema:            hashKey("notification_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexNotificationUser, "user_id", "created_at"),
				gsi(indexNotificationItem, "item_id", ""),
			},
		},
		{
			TableName:            aws.String(t.Locations),
			AttributeDefinitions: []types.AttributeDefinition{strAttr("location_id")},
			KeySchema:            hashKey("location_id"),
		},
		{
			TableName: aws.String(t.Messages),
			AttributeDefinitions: []types.AttributeDefinition{
				strAttr("message_id"), strAttr("sender_id"), strAttr("receiver_id"), strAttr("item_id"), strAttr("created_at"),
			},
			KeySchema: hashKey("message_id"),
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(indexMessageSender, "sender_id", "created_at"),
				gsi(indexMessageReceiver, "receiver_id", "created_at"),
				gsi(indexMessageItem, "item_id", ""),
			},
		},
	}
}

// Bootstrap creates all tables and GSIs that don't exist yet. Safe to call on
// every startup.
func Bootstrap(ctx context.Context, client TableCreator, tables config.DynamoTables) error {
	var errs []error
	for _, in := range Tables(tables) {
		in.BillingMode = types.BillingModePayPerRequest
		if err := createTable(ctx, client, in); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKeyAttr, sortKey string) types.GlobalSecondaryIndex {
	ks := hashKey(hashKeyAttr)
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

func createTable(ctx context.Context, client TableCreator, input *dynamodb.CreateTableInput) error {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if errors.As(err, &riue) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", aws.ToString(input.TableName), err)
	}
	slog.Info("created table", "table", aws.ToString(input.TableName))
	return nil
}
