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

// ItemStore keeps items keyed by item_id. Finder, claimant and drop-off
// location each have a sparse index; every other filter runs in memory.
type ItemStore struct{ db *DB }

func NewItemStore(db *DB) *ItemStore { return &ItemStore{db: db} }

func (s *ItemStore) Create(ctx context.Context, it *domain.Item) error {
	if err := putNew(ctx, s.db, s.db.tables.Items, fieldItemID, it); err != nil {
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

func (s *ItemStore) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	return getOne[domain.Item](ctx, s.db, s.db.tables.Items, strKey(fieldItemID, itemID), "item", itemID)
}

// List returns one page of items, newest first, plus the total matching count.
func (s *ItemStore) List(ctx context.Context, f domain.ItemFilter) ([]domain.Item, int, error) {
	all, err := s.candidates(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	search := strings.ToLower(f.Search)
	matched := all[:0]
	for _, it := range all {
		if f.Category != "" && (it.Category == nil || *it.Category != f.Category) {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(it.Name), search) &&
			!strings.Contains(strings.ToLower(it.Description), search) {
			continue
		}
		matched = append(matched, it)
	}
	newestFirst(matched, func(it domain.Item) time.Time { return it.CreatedAt }, func(it domain.Item) string { return it.ItemID })
	items, total := paged(matched, f.PageRequest)
	return items, total, nil
}

// candidates narrows by user relation through the indexes, or scans.
func (s *ItemStore) candidates(ctx context.Context, f domain.ItemFilter) ([]domain.Item, error) {
	t := s.db.tables.Items
	switch {
	case f.FoundBy != "":
		return queryAll[domain.Item](ctx, s.db, byIndex(t, indexItemFoundBy, fieldFoundBy, f.FoundBy))
	case f.ClaimedBy != "":
		return queryAll[domain.Item](ctx, s.db, byIndex(t, indexItemClaimedBy, fieldClaimedBy, f.ClaimedBy))
	case f.Involving != "":
		found, err := queryAll[domain.Item](ctx, s.db, byIndex(t, indexItemFoundBy, fieldFoundBy, f.Involving))
		if err != nil {
			return nil, err
		}
		claimed, err := queryAll[domain.Item](ctx, s.db, byIndex(t, indexItemClaimedBy, fieldClaimedBy, f.Involving))
		if err != nil {
			return nil, err
		}
		seen := make(map[string]bool, len(found))
		for _, it := range found {
			seen[it.ItemID] = true
		}
		for _, it := range claimed {
			if !seen[it.ItemID] {
				found = append(found, it)
			}
		}
		return found, nil
	}
	return scanAll[domain.Item](ctx, s.db, &dynamodb.ScanInput{TableName: aws.String(t)})
}

// Categories returns the distinct non-empty categories in use, sorted.
func (s *ItemStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := scanAll[struct {
		Category string `dynamodbav:"category"`
	}](ctx, s.db, &dynamodb.ScanInput{
		TableName:                aws.String(s.db.tables.Items),
		ProjectionExpression:     aws.String("#c"),
		FilterExpression:         aws.String("attribute_exists(#c) AND #c <> :empty"),
		ExpressionAttributeNames: map[string]string{"#c": "category"},
		ExpressionAttributeValues: attrs{
			":empty": strAV(""),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range rows {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Update replaces the stored item only while its status is still expected.
func (s *ItemStore) Update(ctx context.Context, it *domain.Item, expected domain.ItemStatus) error {
	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName:                           aws.String(s.db.tables.Items),
			Item:                                item,
			ConditionExpression:                 aws.String("attribute_exists(#k) AND #s = :expected"),
			ExpressionAttributeNames:            map[string]string{"#k": fieldItemID, "#s": fieldStatus},
			ExpressionAttributeValues:           attrs{":expected": strAV(string(expected))},
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		return missingOrConflict(err, "item", it.ItemID)
	})
}

// MarkClaimed hands the item to claimantID unless it already has an owner.
func (s *ItemStore) MarkClaimed(ctx context.Context, itemID, claimantID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:    domain.ItemClaimed,
		fieldClaimedBy: claimantID,
		fieldUpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	ue = ue.with(map[string]string{"#k": fieldItemID, "#st": fieldStatus}, attrs{
		":claimed":  strAV(string(domain.ItemClaimed)),
		":returned": strAV(string(domain.ItemReturned)),
	})
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                           aws.String(s.db.tables.Items),
			Key:                                 strKey(fieldItemID, itemID),
			UpdateExpression:                    aws.String(ue.Expr),
			ConditionExpression:                 aws.String("attribute_exists(#k) AND NOT (#st IN (:claimed, :returned))"),
			ExpressionAttributeNames:            ue.Names,
			ExpressionAttributeValues:           ue.Values,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		return missingOrConflict(err, "item", itemID)
	})
}

// Delete removes the item with its claims and notifications; messages keep
// their text but lose the link. The item record goes last.
func (s *ItemStore) Delete(ctx context.Context, itemID string) error {
	if _, err := s.Get(ctx, itemID); err != nil {
		return err
	}
	if err := deleteNotificationsBy(ctx, s.db, indexNotificationItem, fieldItemID, itemID); err != nil {
		return fmt.Errorf("delete item notifications: %w", err)
	}
	if err := deleteClaimsBy(ctx, s.db, indexClaimItem, fieldItemID, itemID); err != nil {
		return fmt.Errorf("delete item claims: %w", err)
	}
	if err := unlinkMessages(ctx, s.db, itemID); err != nil {
		return fmt.Errorf("unlink item messages: %w", err)
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                           aws.String(s.db.tables.Items),
			Key:                                 strKey(fieldItemID, itemID),
			ConditionExpression:                 aws.String("attribute_exists(#k)"),
			ExpressionAttributeNames:            map[string]string{"#k": fieldItemID},
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		return missingOrConflict(err, "item", itemID)
	})
}

func (s *ItemStore) CountByLocation(ctx context.Context, locationID string) (int, error) {
	return countQuery(ctx, s.db, byIndex(s.db.tables.Items, indexItemLocation, "drop_off_location_id", locationID))
}

// detachItems clears userID from the items it found or claimed. Claimed
// items go back to found.
func detachItems(ctx context.Context, d *DB, userID string) error {
	t := d.tables.Items
	found, err := queryAll[domain.Item](ctx, d, byIndex(t, indexItemFoundBy, fieldFoundBy, userID))
	if err != nil {
		return fmt.Errorf("load found items: %w", err)
	}
	claimed, err := queryAll[domain.Item](ctx, d, byIndex(t, indexItemClaimedBy, fieldClaimedBy, userID))
	if err != nil {
		return fmt.Errorf("load claimed items: %w", err)
	}
	now := timeAV(time.Now().UTC())
	for _, it := range found {
		err := d.write(ctx, func(ctx context.Context) error {
			_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                 aws.String(t),
				Key:                       strKey(fieldItemID, it.ItemID),
				UpdateExpression:          aws.String("SET #u = :now REMOVE #f"),
				ExpressionAttributeNames:  map[string]string{"#u": fieldUpdatedAt, "#f": fieldFoundBy},
				ExpressionAttributeValues: attrs{":now": now},
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("detach finder from item %s: %w", it.ItemID, err)
		}
	}
	for _, it := range claimed {
		err := d.write(ctx, func(ctx context.Context) error {
			_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName:                aws.String(t),
				Key:                      strKey(fieldItemID, it.ItemID),
				UpdateExpression:         aws.String("SET #u = :now, #s = :found REMOVE #c"),
				ExpressionAttributeNames: map[string]string{"#u": fieldUpdatedAt, "#s": fieldStatus, "#c": fieldClaimedBy},
				ExpressionAttributeValues: attrs{
					":now":   now,
					":found": strAV(string(domain.ItemFound)),
				},
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("detach claimant from item %s: %w", it.ItemID, err)
		}
	}
	return nil
}
