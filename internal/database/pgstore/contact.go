package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxlog/voxlog/internal/database/models"
)

// contactRepo implements database.ContactRepository on PostgreSQL.
type contactRepo struct {
	db *sql.DB
}

// Upsert inserts or merge-updates a contact keyed on phone_number, with the
// same merge law as the SQLite store: non-null incoming values overwrite,
// null incoming values keep the stored value.
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (phone_number) DO UPDATE SET
		   first_name = COALESCE(EXCLUDED.first_name, contacts.first_name),
		   last_name  = COALESCE(EXCLUDED.last_name,  contacts.last_name),
		   email      = COALESCE(EXCLUDED.email,      contacts.email),
		   updated_at = EXCLUDED.updated_at
		 RETURNING id, phone_number, first_name, last_name, email, created_at, updated_at`,
		id, contact.PhoneNumber, contact.FirstName, contact.LastName, contact.Email, now, now,
	)

	var c models.Contact
	if err := row.Scan(&c.ID, &c.PhoneNumber, &c.FirstName, &c.LastName, &c.Email,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upserting contact: %w", err)
	}
	return &c, nil
}

// GetByPhoneNumber returns the contact for a phone number, or nil if none.
func (r *contactRepo) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, phone_number, first_name, last_name, email, created_at, updated_at
		 FROM contacts WHERE phone_number = $1`, phoneNumber,
	)

	var c models.Contact
	err := row.Scan(&c.ID, &c.PhoneNumber, &c.FirstName, &c.LastName, &c.Email,
		&c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting contact: %w", err)
	}
	return &c, nil
}

// Count returns the total number of contacts.
func (r *contactRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting contacts: %w", err)
	}
	return count, nil
}
