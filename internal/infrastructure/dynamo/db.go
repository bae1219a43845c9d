package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/config"
	"github.com/lostfound-api/internal/domain"
	"github.com/sethvargo/go-retry"
)

// API is the subset of the DynamoDB client the stores call.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// DB is the handle shared by the per-table stores.
type DB struct {
	client  API
	tables  config.DynamoTables
	timeout time.Duration
}

func New(client API, tables config.DynamoTables, timeout time.Duration) *DB {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &DB{client: client, tables: tables, timeout: timeout}
}

// Ping reports whether the users table is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.read(ctx, func(ctx context.Context) error {
		_, err := d.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(d.tables.Users)})
		return err
	})
}

// read runs an idempotent call with the store timeout and one retry on throttling.
func (d *DB) read(ctx context.Context, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(1, retry.NewExponential(50*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		err := translate(fn(cctx))
		if errors.Is(err, domain.ErrTransient) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
}

// write runs a mutation with the store timeout. Mutations are never retried.
func (d *DB) write(ctx context.Context, fn func(ctx context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return translate(fn(cctx))
}

// translate maps SDK errors onto domain sentinels. Errors that are already
// domain errors pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{domain.ErrNotFound, domain.ErrConflict, domain.ErrBadRequest, domain.ErrTransient} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("store call timed out: %w", domain.ErrTransient)
	}

	var (
		ccf      *types.ConditionalCheckFailedException
		canceled *types.TransactionCanceledException
		conflict *types.TransactionConflictException
		thrott   *types.ProvisionedThroughputExceededException
		limit    *types.RequestLimitExceeded
	)
	switch {
	case errors.As(err, &ccf):
		return fmt.Errorf("condition failed: %w", domain.ErrConflict)
	case errors.As(err, &canceled):
		for _, r := range canceled.CancellationReasons {
			switch aws.ToString(r.Code) {
			case "ConditionalCheckFailed":
				return fmt.Errorf("transaction condition failed: %w", domain.ErrConflict)
			case "TransactionConflict", "ThrottlingError", "ProvisionedThroughputExceeded":
				return fmt.Errorf("transaction canceled: %w", domain.ErrTransient)
			}
		}
		return err
	case errors.As(err, &conflict), errors.As(err, &thrott), errors.As(err, &limit):
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrTransient)
	}
	return err
}

// missingOrConflict explains a failed conditional write on one record. The
// write must ask for the old image on failure so a missing record can be told
// apart from one whose state moved on.
func missingOrConflict(err error, what, id string) error {
	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return err
	}
	if len(ccf.Item) == 0 {
		return fmt.Errorf("%s %s not found: %w", what, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s %s changed concurrently: %w", what, id, domain.ErrConflict)
}

// canceledMissing reports whether the transaction failed because the record at
// index i did not exist.
func canceledMissing(err error, i int) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) || i >= len(canceled.CancellationReasons) {
		return false
	}
	r := canceled.CancellationReasons[i]
	return aws.ToString(r.Code) == "ConditionalCheckFailed" && len(r.Item) == 0
}

func isNotFound(err error) bool { return errors.Is(err, domain.ErrNotFound) }
