package dynamo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

type attrs = map[string]types.AttributeValue

// strKey builds a primary key map with a single string attribute.
func strKey(name, value string) attrs {
	return attrs{name: strAV(value)}
}

func strAV(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }
func boolAV(b bool) types.AttributeValue { return &types.AttributeValueMemberBOOL{Value: b} }
func timeAV(t time.Time) types.AttributeValue { return strAV(t.Format(time.RFC3339Nano)) }

// updateExpr is a SET expression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values attrs
}

// buildUpdateExpr converts a map of field->value into a SET expression.
// Placeholders follow the sorted field order so the output is deterministic.
func buildUpdateExpr(updates map[string]interface{}) (updateExpr, error) {
	if len(updates) == 0 {
		return updateExpr{}, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ue := updateExpr{Names: make(map[string]string, len(keys)), Values: make(attrs, len(keys))}
	sets := make([]string, 0, len(keys))
	for i, k := range keys {
		nameKey := fmt.Sprintf("#f%d", i)
		valueKey := fmt.Sprintf(":v%d", i)
		av, err := attributevalue.Marshal(updates[k])
		if err != nil {
			return updateExpr{}, fmt.Errorf("marshal field %s: %w", k, err)
		}
		ue.Names[nameKey] = k
		ue.Values[valueKey] = av
		sets = append(sets, nameKey+" = "+valueKey)
	}
	ue.Expr = "SET " + strings.Join(sets, ", ")
	return ue, nil
}

// with merges condition placeholders into the expression maps.
func (ue updateExpr) with(names map[string]string, values attrs) updateExpr {
	for k, v := range names {
		ue.Names[k] = v
	}
	for k, v := range values {
		ue.Values[k] = v
	}
	return ue
}

// getOne loads a single record by key with a strongly consistent read.
func getOne[T any](ctx context.Context, d *DB, table string, key attrs, what, id string) (*T, error) {
	var out *T
	err := d.read(ctx, func(ctx context.Context) error {
		res, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName:      aws.String(table),
			Key:            key,
			ConsistentRead: aws.Bool(true),
		})
		if err != nil {
			return err
		}
		if len(res.Item) == 0 {
			return fmt.Errorf("%s %s not found: %w", what, id, domain.ErrNotFound)
		}
		var v T
		if err := attributevalue.UnmarshalMap(res.Item, &v); err != nil {
			return fmt.Errorf("unmarshal %s: %w", what, err)
		}
		out = &v
		return nil
	})
	return out, err
}

// putNew writes a record that must not exist yet under keyAttr.
func putNew(ctx context.Context, d *DB, table, keyAttr string, v interface{}) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", table, err)
	}
	return d.write(ctx, func(ctx context.Context) error {
		_, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                aws.String(table),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#k)"),
			ExpressionAttributeNames: map[string]string{"#k": keyAttr},
		})
		return err
	})
}

// queryAll follows LastEvaluatedKey until the query is exhausted.
func queryAll[T any](ctx context.Context, d *DB, in *dynamodb.QueryInput) ([]T, error) {
	var out []T
	err := d.read(ctx, func(ctx context.Context) error {
		out = out[:0]
		p := dynamodb.NewQueryPaginator(d.client, in)
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			var batch []T
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
				return fmt.Errorf("unmarshal query page: %w", err)
			}
			out = append(out, batch...)
		}
		return nil
	})
	return out, err
}

// scanAll reads a whole table, optionally filtered.
func scanAll[T any](ctx context.Context, d *DB, in *dynamodb.ScanInput) ([]T, error) {
	var out []T
	err := d.read(ctx, func(ctx context.Context) error {
		out = out[:0]
		p := dynamodb.NewScanPaginator(d.client, in)
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			var batch []T
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
				return fmt.Errorf("unmarshal scan page: %w", err)
			}
			out = append(out, batch...)
		}
		return nil
	})
	return out, err
}

// countQuery runs a SELECT COUNT query across every result page.
func countQuery(ctx context.Context, d *DB, in *dynamodb.QueryInput) (int, error) {
	in.Select = types.SelectCount
	var n int
	err := d.read(ctx, func(ctx context.Context) error {
		n = 0
		p := dynamodb.NewQueryPaginator(d.client, in)
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			n += int(page.Count)
		}
		return nil
	})
	return n, err
}

// byIndex is a query on a string hash key of a secondary index.
func byIndex(table, index, attr, value string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#h = :h"),
		ExpressionAttributeNames:  map[string]string{"#h": attr},
		ExpressionAttributeValues: attrs{":h": strAV(value)},
	}
}

// filtered adds a filter expression with its own placeholders to q.
func filtered(q *dynamodb.QueryInput, expr string, names map[string]string, values attrs) *dynamodb.QueryInput {
	q.FilterExpression = aws.String(expr)
	for k, v := range names {
		q.ExpressionAttributeNames[k] = v
	}
	for k, v := range values {
		q.ExpressionAttributeValues[k] = v
	}
	return q
}

// newestFirst orders by created_at descending with the id as tiebreaker,
// matching the SQL stores.
func newestFirst[T any](list []T, created func(T) time.Time, id func(T) string) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := created(list[i]), created(list[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return id(list[i]) > id(list[j])
	})
}

// paged slices an ordered result the same way LIMIT/OFFSET would.
func paged[T any](all []T, req domain.PageRequest) ([]T, int) {
	p := domain.Paginate(all, req)
	return p.Items, p.Total
}
