package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/lostfound-api/internal/domain"
)

// NotificationStore keeps notifications keyed by notification_id and indexed
// by recipient and created_at.
type NotificationStore struct{ db *DB }

func NewNotificationStore(db *DB) *NotificationStore { return &NotificationStore{db: db} }

func (s *NotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if err := putNew(ctx, s.db, s.db.tables.Notifications, fieldNotificationID, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	return getOne[domain.Notification](ctx, s.db, s.db.tables.Notifications,
		strKey(fieldNotificationID, notificationID), "notification", notificationID)
}

func (s *NotificationStore) forUser(userID string, read *bool) *dynamodb.QueryInput {
	q := byIndex(s.db.tables.Notifications, indexNotificationUser, fieldUserID, userID)
	q.ScanIndexForward = aws.Bool(false)
	if read != nil {
		q = filtered(q, "#r = :r", map[string]string{"#r": fieldIsRead}, attrs{":r": boolAV(*read)})
	}
	return q
}

// List returns one page of the user's notifications, newest first.
func (s *NotificationStore) List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, int, error) {
	all, err := queryAll[domain.Notification](ctx, s.db, s.forUser(f.UserID, f.Read))
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	newestFirst(all, func(n domain.Notification) time.Time { return n.CreatedAt }, func(n domain.Notification) string { return n.NotificationID })
	out, total := paged(all, f.PageRequest)
	return out, total, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int, error) {
	unread := false
	return countQuery(ctx, s.db, s.forUser(userID, &unread))
}

func (s *NotificationStore) MarkRead(ctx context.Context, notificationID string) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		return markRead(ctx, s.db, s.db.tables.Notifications, fieldNotificationID, notificationID, "notification")
	})
}

// MarkAllRead flips every unread notification of the user and returns how many changed.
func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int, error) {
	unread := false
	pending, err := queryAll[domain.Notification](ctx, s.db, s.forUser(userID, &unread))
	if err != nil {
		return 0, fmt.Errorf("load unread notifications: %w", err)
	}
	n := 0
	for _, p := range pending {
		err := s.db.write(ctx, func(ctx context.Context) error {
			return markRead(ctx, s.db, s.db.tables.Notifications, fieldNotificationID, p.NotificationID, "notification")
		})
		switch {
		case err == nil:
			n++
		case !isNotFound(err):
			return n, err
		}
	}
	return n, nil
}

func (s *NotificationStore) Delete(ctx context.Context, notificationID string) error {
	return s.db.write(ctx, func(ctx context.Context) error {
		_, err := s.db.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:                           aws.String(s.db.tables.Notifications),
			Key:                                 strKey(fieldNotificationID, notificationID),
			ConditionExpression:                 aws.String("attribute_exists(#k)"),
			ExpressionAttributeNames:            map[string]string{"#k": fieldNotificationID},
			ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
		})
		return missingOrConflict(err, "notification", notificationID)
	})
}

// markRead sets is_read on an existing notification or message.
func markRead(ctx context.Context, d *DB, table, keyAttr, id, what string) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(table),
		Key:                                 strKey(keyAttr, id),
		UpdateExpression:                    aws.String("SET #r = :t"),
		ConditionExpression:                 aws.String("attribute_exists(#k)"),
		ExpressionAttributeNames:            map[string]string{"#r": fieldIsRead, "#k": keyAttr},
		ExpressionAttributeValues:           attrs{":t": boolAV(true)},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	return missingOrConflict(err, what, id)
}

// deleteNotificationsBy removes every notification found through an index.
func deleteNotificationsBy(ctx context.Context, d *DB, index, attr, value string) error {
	list, err := queryAll[domain.Notification](ctx, d, byIndex(d.tables.Notifications, index, attr, value))
	if err != nil {
		return err
	}
	for _, n := range list {
		err := d.write(ctx, func(ctx context.Context) error {
			_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(d.tables.Notifications),
				Key:       strKey(fieldNotificationID, n.NotificationID),
			})
			return err
		})
		if err != nil {
			return fmt.Errorf("delete notification %s: %w", n.NotificationID, err)
		}
	}
	return nil
}
