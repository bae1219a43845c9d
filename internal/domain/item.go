package domain

import "time"

type ItemStatus string

const (
	ItemFound    ItemStatus = "found"
	ItemLost     ItemStatus = "lost"
	ItemClaimed  ItemStatus = "claimed"
	ItemReturned ItemStatus = "returned"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemFound, ItemLost, ItemClaimed, ItemReturned:
		return true
	}
	return false
}

// Closed reports whether the item has an owner and accepts no new claims.
func (s ItemStatus) Closed() bool {
	return s == ItemClaimed || s == ItemReturned
}

type Item struct {
	ItemID            string     `json:"id" db:"id" dynamodbav:"item_id"`
	Name              string     `json:"name" db:"name" dynamodbav:"name"`
	Description       string     `json:"description" db:"description" dynamodbav:"description"`
	Category          *string    `json:"category" db:"category" dynamodbav:"category,omitempty"`
	Status            ItemStatus `json:"status" db:"status" dynamodbav:"status"`
	ImagePath         *string    `json:"image_path" db:"image_path" dynamodbav:"image_path,omitempty"`
	LostDate          *time.Time `json:"lost_date" db:"lost_date" dynamodbav:"lost_date,omitempty"`
	FoundDate         *time.Time `json:"found_date" db:"found_date" dynamodbav:"found_date,omitempty"`
	DropOffLocationID *string    `json:"drop_off_location_id" db:"drop_off_location_id" dynamodbav:"drop_off_location_id,omitempty"`
	FoundByUserID     *string    `json:"found_by_user_id" db:"found_by_user_id" dynamodbav:"found_by_user_id,omitempty"`
	ClaimedByUserID   *string    `json:"claimed_by_user_id" db:"claimed_by_user_id" dynamodbav:"claimed_by_user_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at" dynamodbav:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at" dynamodbav:"updated_at"`
}

// FoundBy reports whether userID reported the item.
func (i *Item) FoundBy(userID string) bool {
	return i.FoundByUserID != nil && userID != "" && *i.FoundByUserID == userID
}

// ItemFilter narrows item listings. Involving matches either the finder or the claimant.
type ItemFilter struct {
	Category  string
	Status    ItemStatus
	Search    string
	FoundBy   string
	ClaimedBy string
	Involving string
	PageRequest
}

type CreateItemRequest struct {
	Name              string     `validate:"required,max=200"`
	Description       string     `validate:"max=5000"`
	Category          *string    `validate:"omitempty,max=100"`
	Status            ItemStatus `validate:"omitempty,oneof=found lost"`
	LostDate          *time.Time
	FoundDate         *time.Time
	DropOffLocationID *string
}

type UpdateItemRequest struct {
	Name              *string     `validate:"omitempty,min=1,max=200"`
	Description       *string     `validate:"omitempty,max=5000"`
	Category          *string     `validate:"omitempty,max=100"`
	Status            *ItemStatus `validate:"omitempty,oneof=found lost claimed returned"`
	LostDate          *time.Time
	FoundDate         *time.Time
	DropOffLocationID *string
	// ClaimedByUserID lets an admin name the owner when moving an item to claimed or returned.
	ClaimedByUserID *string
}

// Image is an uploaded picture attached to a create or update call.
type Image struct {
	Data     []byte
	Filename string
}
