package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxlog/voxlog/internal/database/models"
)

// contactRepo implements ContactRepository on SQLite.
type contactRepo struct {
	db *DB
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db *DB) ContactRepository {
	return &contactRepo{db: db}
}

// Upsert inserts or merge-updates a contact keyed on phone_number. For each
// optional field the stored value is kept when the incoming value is null;
// a non-null incoming value overwrites. The whole operation is one statement
// so concurrent upserts cannot interleave partially.
func (r *contactRepo) Upsert(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	if contact.PhoneNumber == "" {
		return nil, fmt.Errorf("upserting contact: phone number is required")
	}

	now := time.Now().UTC()
	id := contact.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO contacts (id, phone_number, first_name, last_name, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(phone_number) DO UPDATE SET
		   first_name = COALESCE(excluded.first_name, contacts.first_name),
		   last_name  = COALESCE(excluded.last_name,  contacts.last_name),
		   email      = COALESCE(excluded.email,      contacts.email),
		   updated_at = excluded.updated_at
		 RETURNING id, phone_number, first_name, last_name, email, created_at, updated_at`,
		id, contact.PhoneNumber, contact.FirstName, contact.LastName, contact.Email, now, now,
	)

	stored, err := scanContact(row)
	if err != nil {
		return nil, fmt.Errorf("upserting contact: %w", err)
	}
	return stored, nil
}

// GetByPhoneNumber returns the contact for a phone number, or nil if none.
func (r *contactRepo) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, phone_number, first_name, last_name, email, created_at, updated_at
		 FROM contacts WHERE phone_number = ?`, phoneNumber,
	)

	contact, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting contact: %w", err)
	}
	return contact, nil
}

// Count returns the total number of contacts.
func (r *contactRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting contacts: %w", err)
	}
	return count, nil
}

func scanContact(row *sql.Row) (*models.Contact, error) {
	var c models.Contact
	err := row.Scan(&c.ID, &c.PhoneNumber, &c.FirstName, &c.LastName, &c.Email,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
