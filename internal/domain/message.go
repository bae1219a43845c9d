package domain

import "time"

type Message struct {
	MessageID  string    `json:"id" db:"id" dynamodbav:"message_id"`
	SenderID   string    `json:"sender_id" db:"sender_id" dynamodbav:"sender_id"`
	ReceiverID string    `json:"receiver_id" db:"receiver_id" dynamodbav:"receiver_id"`
	ItemID     *string   `json:"item_id" db:"item_id" dynamodbav:"item_id,omitempty"`
	Content    string    `json:"content" db:"content" dynamodbav:"content"`
	Read       bool      `json:"read" db:"is_read" dynamodbav:"is_read"`
	CreatedAt  time.Time `json:"created_at" db:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at" dynamodbav:"updated_at"`
}

type SendMessageRequest struct {
	ReceiverID string  `json:"receiver_id" validate:"required"`
	Content    string  `json:"content" validate:"required,max=5000"`
	ItemID     *string `json:"item_id"`
}

// Conversation summarizes the latest exchange with one other user.
type Conversation struct {
	PartnerID     string    `json:"partner_id"`
	PartnerName   string    `json:"partner_name"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	ItemID        *string   `json:"item_id"`
	UnreadCount   int       `json:"unread_count"`
}
