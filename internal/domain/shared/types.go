package shared

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// FailureReason categorises why a sale request could not be recorded
type FailureReason string

const (
	FailureReasonMalformedMessage FailureReason = "MALFORMED_MESSAGE"
	FailureReasonInvalidRequest   FailureReason = "INVALID_REQUEST"
	FailureReasonInvalidAmount    FailureReason = "INVALID_AMOUNT"
	FailureReasonRetriesExhausted FailureReason = "RETRIES_EXHAUSTED"
)

// Role is the caller role carried in the access token
type Role string

const (
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)
