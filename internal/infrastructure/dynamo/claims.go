package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

// ClaimStore keeps claims keyed by claim_id. While a claim is open (pending
// or verified) a marker record "open#<item>#<user>" pointing at it lives in
// the same table, so a user holds at most one open claim per item. Markers
// carry no item_id and stay out of both indexes.
type ClaimStore struct{ db *DB }

func NewClaimStore(db *DB) *ClaimStore { return &ClaimStore{db: db} }

type claimMarker struct {
	ClaimID string `dynamodbav:"claim_id"`
	OwnerID string `dynamodbav:"owner_id"`
}

func openMarker(itemID, userID string) string { return "open#" + itemID + "#" + userID }

func isOpen(s domain.ClaimStatus) bool { return s != domain.ClaimRejected }

func (s *ClaimStore) putMarker(c *domain.Claim) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(s.db.tables.Claims),
		Item: attrs{
			fieldClaimID: strAV(openMarker(c.ItemID, c.UserID)),
			fieldOwner:   strAV(c.ClaimID),
		},
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": fieldClaimID},
	}}
}

func deleteMarker(table string, c *domain.Claim) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName:                 aws.String(table),
		Key:                       strKey(fieldClaimID, openMarker(c.ItemID, c.UserID)),
		ConditionExpression:       aws.String("#o = :id"),
		ExpressionAttributeNames:  map[string]string{"#o": fieldOwner},
		ExpressionAttributeValues: attrs{":id": strAV(c.ClaimID)},
	}}
}

// Create stores the claim. A second open claim for the same item and user
// fails with domain.ErrConflict.
func (s *ClaimStore) Create(ctx context.Context, c *domain.Claim) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}
	tx := []types.TransactWriteItem{{Put: &types.Put{
		TableName:                aws.String(s.db.tables.Claims),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": fieldClaimID},
	}}}
	if isOpen(c.VerificationStatus) {
		tx = append(tx, s.putMarker(c))
	}
	err = s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
		return err
	})
	if err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

func (s *ClaimStore) Get(ctx context.Context, claimID string) (*domain.Claim, error) {
	return getOne[domain.Claim](ctx, s.db, s.db.tables.Claims, strKey(fieldClaimID, claimID), "claim", claimID)
}

// FindOpen returns the user's pending or verified claim on the item.
func (s *ClaimStore) FindOpen(ctx context.Context, itemID, userID string) (*domain.Claim, error) {
	m, err := getOne[claimMarker](ctx, s.db, s.db.tables.Claims, strKey(fieldClaimID, openMarker(itemID, userID)), "open claim on item", itemID)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, m.OwnerID)
}

// List returns one page of claims, newest first, plus the total matching count.
func (s *ClaimStore) List(ctx context.Context, f domain.ClaimFilter) ([]domain.Claim, int, error) {
	var (
		all []domain.Claim
		err error
	)
	t := s.db.tables.Claims
	switch {
	case f.UserID != "":
		all, err = queryAll[domain.Claim](ctx, s.db, byIndex(t, indexClaimUser, fieldUserID, f.UserID))
	case f.ItemID != "":
		all, err = queryAll[domain.Claim](ctx, s.db, byIndex(t, indexClaimItem, fieldItemID, f.ItemID))
	default:
		all, err = scanAll[domain.Claim](ctx, s.db, &dynamodb.ScanInput{
			TableName:                aws.String(t),
			FilterExpression:         aws.String("attribute_exists(#i)"),
			ExpressionAttributeNames: map[string]string{"#i": fieldItemID},
		})
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list claims: %w", err)
	}
	matched := all[:0]
	for _, c := range all {
		if f.ItemID != "" && c.ItemID != f.ItemID {
			continue
		}
		if f.Status != "" && c.VerificationStatus != f.Status {
			continue
		}
		matched = append(matched, c)
	}
	newestFirst(matched, func(c domain.Claim) time.Time { return c.CreatedAt }, func(c domain.Claim) string { return c.ClaimID })
	claims, total := paged(matched, f.PageRequest)
	return claims, total, nil
}

func (s *ClaimStore) CountByItem(ctx context.Context, itemID string) (int, error) {
	return countQuery(ctx, s.db, byIndex(s.db.tables.Claims, indexClaimItem, fieldItemID, itemID))
}

// Transition moves the claim from one verification status to another. It fails
// with domain.ErrConflict if the stored status is no longer from. Leaving the
// open states releases the marker; re-entering them takes it again.
func (s *ClaimStore) Transition(ctx context.Context, claimID string, from, to domain.ClaimStatus) error {
	c, err := s.Get(ctx, claimID)
	if err != nil {
		return err
	}
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldVerificationStatus: to,
		fieldUpdatedAt:          time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	ue = ue.with(map[string]string{"#k": fieldClaimID, "#st": fieldVerificationStatus}, attrs{":from": strAV(string(from))})
	tx := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                           aws.String(s.db.tables.Claims),
		Key:                                 strKey(fieldClaimID, claimID),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String("attribute_exists(#k) AND #st = :from"),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}}}
	switch {
	case isOpen(from) && !isOpen(to):
		tx = append(tx, deleteMarker(s.db.tables.Claims, c))
	case !isOpen(from) && isOpen(to):
		tx = append(tx, s.putMarker(c))
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
		if canceledMissing(err, 0) {
			return fmt.Errorf("claim %s not found: %w", claimID, domain.ErrNotFound)
		}
		return err
	})
}

// UpdateDetails sets the non-nil text fields. With requirePending the write
// only lands while the claim is still pending.
func (s *ClaimStore) UpdateDetails(ctx context.Context, claimID string, proof, notes *string, requirePending bool) error {
	updates := map[string]interface{}{}
	if proof != nil {
		updates["proof_description"] = *proof
	}
	if notes != nil {
		updates["admin_notes"] = *notes
	}
	if len(updates) == 0 {
		return nil
	}
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	cond := "attribute_exists(#k)"
	names := map[string]string{"#k": fieldClaimID}
	var values attrs
	if requirePending {
		cond += " AND #st = :pending"
		names["#st"] = fieldVerificationStatus
		values = attrs{":pending": strAV(string(domain.ClaimPending))}
	}
	ue = ue.with(names, values)
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                           aws.String(s.db.tables.Claims),
			Key:                                 strKey(fieldClaimID, claimID),
			UpdateExpression:                    aws.String(ue.Expr),
			ConditionExpression:                 aws.String(cond),
			ExpressionAttributeNames:            ue.Names,
			ExpressionAttributeValues:           ue.Values,
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		return missingOrConflict(err, "claim", claimID)
	})
}

// Delete removes the claim; with requirePending only while it is still pending.
func (s *ClaimStore) Delete(ctx context.Context, claimID string, requirePending bool) error {
	c, err := s.Get(ctx, claimID)
	if err != nil {
		return err
	}
	if requirePending && c.VerificationStatus != domain.ClaimPending {
		return fmt.Errorf("claim %s changed concurrently: %w", claimID, domain.ErrConflict)
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: removeClaim(s.db.tables.Claims, c),
		})
		if canceledMissing(err, 0) {
			return fmt.Errorf("claim %s not found: %w", claimID, domain.ErrNotFound)
		}
		return err
	})
}

// removeClaim deletes c, conditional on its status not having moved since it
// was read, together with its marker when open.
func removeClaim(table string, c *domain.Claim) []types.TransactWriteItem {
	tx := []types.TransactWriteItem{{Delete: &types.Delete{
		TableName:                           aws.String(table),
		Key:                                 strKey(fieldClaimID, c.ClaimID),
		ConditionExpression:                 aws.String("#st = :read"),
		ExpressionAttributeNames:            map[string]string{"#st": fieldVerificationStatus},
		ExpressionAttributeValues:           attrs{":read": strAV(string(c.VerificationStatus))},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}}}
	if isOpen(c.VerificationStatus) {
		tx = append(tx, deleteMarker(table, c))
	}
	return tx
}

// deleteClaimsBy removes every claim found through a claims index.
func deleteClaimsBy(ctx context.Context, d *DB, index, attr, value string) error {
	claims, err := queryAll[domain.Claim](ctx, d, byIndex(d.tables.Claims, index, attr, value))
	if err != nil {
		return err
	}
	for i := range claims {
		c := &claims[i]
		err := d.write(ctx, func(ctx context.Context) error {
			_, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
				TransactItems: removeClaim(d.tables.Claims, c),
			})
			if canceledMissing(err, 0) {
				return nil
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("delete claim %s: %w", c.ClaimID, err)
		}
	}
	return nil
}
