package dynamo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

// UserStore keeps users in one table keyed by user_id. Email uniqueness is
// held by a marker record keyed "email#<address>" in the same table, written
// in the same transaction as the user.
type UserStore struct{ db *DB }

func NewUserStore(db *DB) *UserStore { return &UserStore{db: db} }

func emailMarker(email string) string { return "email#" + email }

// userGuard is the marker record that reserves an email for one user.
type userGuard struct {
	UserID  string `dynamodbav:"user_id"`
	OwnerID string `dynamodbav:"owner_id"`
}

func (s *UserStore) reserveEmail(email, ownerID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName:                aws.String(s.db.tables.Users),
		Item:                     attrs{fieldUserID: strAV(emailMarker(email)), fieldOwner: strAV(ownerID)},
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": fieldUserID},
	}}
}

func (s *UserStore) releaseEmail(email string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName: aws.String(s.db.tables.Users),
		Key:       strKey(fieldUserID, emailMarker(email)),
	}}
}

func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	err = s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Put: &types.Put{
					TableName:                aws.String(s.db.tables.Users),
					Item:                     item,
					ConditionExpression:      aws.String("attribute_not_exists(#k)"),
					ExpressionAttributeNames: map[string]string{"#k": fieldUserID},
				}},
				s.reserveEmail(u.Email, u.UserID),
			},
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	return getOne[domain.User](ctx, s.db, s.db.tables.Users, strKey(fieldUserID, userID), "user", userID)
}

// GetByEmail follows the email marker, so the lookup is strongly consistent.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	g, err := getOne[userGuard](ctx, s.db, s.db.tables.Users, strKey(fieldUserID, emailMarker(email)), "user with email", email)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, g.OwnerID)
}

// List returns one page of users, newest first. Marker records carry no
// email attribute and are filtered out.
func (s *UserStore) List(ctx context.Context, req domain.PageRequest) ([]domain.User, int, error) {
	all, err := scanAll[domain.User](ctx, s.db, &dynamodb.ScanInput{
		TableName:                aws.String(s.db.tables.Users),
		FilterExpression:         aws.String("attribute_exists(#e)"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEmail},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	newestFirst(all, func(u domain.User) time.Time { return u.CreatedAt }, func(u domain.User) string { return u.UserID })
	users, total := paged(all, req)
	return users, total, nil
}

func (s *UserStore) ListByRole(ctx context.Context, role string) ([]domain.User, error) {
	out, err := queryAll[domain.User](ctx, s.db, byIndex(s.db.tables.Users, indexUserRole, "role", role))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Update replaces the stored user. A changed email moves the marker in the
// same transaction and fails with domain.ErrConflict if the address is taken.
func (s *UserStore) Update(ctx context.Context, u *domain.User) error {
	old, err := s.Get(ctx, u.UserID)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	put := &types.Put{
		TableName:                           aws.String(s.db.tables.Users),
		Item:                                item,
		ConditionExpression:                 aws.String("attribute_exists(#k)"),
		ExpressionAttributeNames:            map[string]string{"#k": fieldUserID},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}
	tx := []types.TransactWriteItem{{Put: put}}
	if old.Email != u.Email {
		tx = append(tx, s.releaseEmail(old.Email), s.reserveEmail(u.Email, u.UserID))
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: tx})
		if canceledMissing(err, 0) {
			return fmt.Errorf("user %s not found: %w", u.UserID, domain.ErrNotFound)
		}
		return err
	})
}

// Delete removes the account together with its notifications and claims.
// Items it found lose their finder; items it owned go back to found. The
// user record goes last so an interrupted delete can be retried.
func (s *UserStore) Delete(ctx context.Context, userID string) error {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := deleteNotificationsBy(ctx, s.db, indexNotificationUser, fieldUserID, userID); err != nil {
		return fmt.Errorf("delete user notifications: %w", err)
	}
	if err := deleteClaimsBy(ctx, s.db, indexClaimUser, fieldUserID, userID); err != nil {
		return fmt.Errorf("delete user claims: %w", err)
	}
	if err := detachItems(ctx, s.db, userID); err != nil {
		return err
	}
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: []types.TransactWriteItem{
				{Delete: &types.Delete{
					TableName:                           aws.String(s.db.tables.Users),
					Key:                                 strKey(fieldUserID, userID),
					ConditionExpression:                 aws.String("attribute_exists(#k)"),
					ExpressionAttributeNames:            map[string]string{"#k": fieldUserID},
					ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
				}},
				s.releaseEmail(u.Email),
			},
		})
		if canceledMissing(err, 0) {
			return fmt.Errorf("user %s not found: %w", userID, domain.ErrNotFound)
		}
		return err
	})
}
