package models

import "time"

// Contact is an identity keyed by phone number. All name/email fields are
// optional and accumulate across upserts: a stored non-null value is never
// replaced by null.
type Contact struct {
	ID          string
	PhoneNumber string
	FirstName   *string
	LastName    *string
	Email       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Call is the normalized record for one platform call, keyed by the
// platform's call id. Later events for the same call id overwrite the whole
// row; call events grow monotonically more complete as the call progresses.
type Call struct {
	ID         string
	VapiCallID string
	OrgID      *string
	EventType  string
	EventTime  *time.Time

	CallType        *string
	Direction       string
	Status          *string
	EndedReason     *string
	Cost            *float64
	DurationSeconds *int64
	StartedAt       *time.Time
	EndedAt         *time.Time
	Provider        *string
	Transport       *string

	CustomerNumber *string
	CustomerSIPURI *string
	PhoneNumberID  *string
	AssistantID    *string
	AssistantName  *string
	AssistantModel *string
	AssistantVoice *string

	LastUserMessage      *string
	LastAssistantMessage *string
	Summary              *string

	// Side-channel JSON, stored verbatim for fields not yet modeled.
	ToolCallsJSON   *string
	ArtifactJSON    *string
	CallJSON        *string
	AssistantJSON   *string
	PhoneNumberJSON *string
	CustomerJSON    *string
	AnalysisJSON    *string
	RawPayload      string

	CreatedAt time.Time
	UpdatedAt time.Time
}
