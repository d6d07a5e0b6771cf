package database

import (
	"context"

	"github.com/voxlog/voxlog/internal/database/models"
)

// ContactRepository manages phone-number-keyed contacts.
//
// Upsert merges field-by-field: a non-null incoming value overwrites, a null
// incoming value keeps whatever is already stored. Contacts accumulate
// identity details across many call events rather than regressing.
type ContactRepository interface {
	Upsert(ctx context.Context, contact *models.Contact) (*models.Contact, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Contact, error)
	Count(ctx context.Context) (int64, error)
}

// CallRepository manages normalized call records keyed by the platform call id.
//
// Upsert is newest-wins: on conflict every column is overwritten by the
// incoming row as a single atomic statement, so a later event fully
// supersedes an earlier partial snapshot.
type CallRepository interface {
	Upsert(ctx context.Context, call *models.Call) (*models.Call, error)
	GetByVapiCallID(ctx context.Context, vapiCallID string) (*models.Call, error)
	Count(ctx context.Context) (int64, error)
	CountByDirection(ctx context.Context) (map[string]int64, error)
}

// Store is the persistence surface the rest of the service depends on.
// Implemented by the embedded SQLite database and by pgstore for PostgreSQL.
type Store interface {
	Contacts() ContactRepository
	Calls() CallRepository
	Close() error
}
