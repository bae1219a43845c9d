package domain

import "time"

type NotificationType string

const (
	NotificationItemFound   NotificationType = "item_found"
	NotificationItemLost    NotificationType = "item_lost"
	NotificationClaimUpdate NotificationType = "claim_update"
	NotificationMessage     NotificationType = "message"
	NotificationSystem      NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationItemFound, NotificationItemLost, NotificationClaimUpdate, NotificationMessage, NotificationSystem:
		return true
	}
	return false
}

type Notification struct {
	NotificationID string           `json:"id" db:"id" dynamodbav:"notification_id"`
	UserID         string           `json:"user_id" db:"user_id" dynamodbav:"user_id"`
	ItemID         *string          `json:"item_id" db:"item_id" dynamodbav:"item_id,omitempty"`
	RelatedID      *string          `json:"related_id" db:"related_id" dynamodbav:"related_id,omitempty"`
	Message        string           `json:"message" db:"message" dynamodbav:"message"`
	Type           NotificationType `json:"notification_type" db:"notification_type" dynamodbav:"notification_type"`
	Read           bool             `json:"read" db:"is_read" dynamodbav:"is_read"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at" dynamodbav:"created_at"`
}

type NotificationFilter struct {
	UserID string
	Read   *bool
	PageRequest
}

type CreateNotificationRequest struct {
	UserID  string           `json:"user_id" validate:"required"`
	Message string           `json:"message" validate:"required,max=2000"`
	Type    NotificationType `json:"notification_type"`
	ItemID  *string          `json:"item_id"`
}
