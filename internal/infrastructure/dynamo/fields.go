package dynamo

// Attribute names used in key, condition and update expressions.
const (
	fieldUserID             = "user_id"
	fieldItemID             = "item_id"
	fieldClaimID            = "claim_id"
	fieldNotificationID     = "notification_id"
	fieldLocationID         = "location_id"
	fieldMessageID          = "message_id"
	fieldEmail              = "email"
	fieldStatus             = "status"
	fieldVerificationStatus = "verification_status"
	fieldIsRead             = "is_read"
	fieldUpdatedAt          = "updated_at"
	fieldFoundBy            = "found_by_user_id"
	fieldClaimedBy          = "claimed_by_user_id"
	fieldOwner              = "owner_id"
)

// Secondary indexes created by Bootstrap.
const (
	indexUserRole         = "role-index"
	indexItemFoundBy      = "found_by_user_id-index"
	indexItemClaimedBy    = "claimed_by_user_id-index"
	indexItemLocation     = "drop_off_location_id-index"
	indexClaimItem        = "item_id-created_at-index"
	indexClaimUser        = "user_id-created_at-index"
	indexNotificationUser = "user_id-created_at-index"
	indexNotificationItem = "item_id-index"
	indexMessageSender    = "sender_id-created_at-index"
	indexMessageReceiver  = "receiver_id-created_at-index"
	indexMessageItem      = "item_id-index"
)
