package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxlog/voxlog/internal/database/models"
)

// callRepo implements CallRepository on SQLite.
type callRepo struct {
	db *DB
}

// NewCallRepository creates a new CallRepository.
func NewCallRepository(db *DB) CallRepository {
	return &callRepo{db: db}
}

// callColumns is the scan order shared by every call query.
const callColumns = `id, vapi_call_id, org_id, event_type, event_time,
	 call_type, direction, status, ended_reason, cost, duration_seconds,
	 started_at, ended_at, provider, transport,
	 customer_number, customer_sip_uri, phone_number_id,
	 assistant_id, assistant_name, assistant_model, assistant_voice,
	 last_user_message, last_assistant_message, summary,
	 tool_calls_json, artifact_json, call_json, assistant_json,
	 phone_number_json, customer_json, analysis_json, raw_payload,
	 created_at, updated_at`

// Upsert inserts or fully overwrites a call record keyed on vapi_call_id.
// On conflict every column takes the incoming value and updated_at is
// refreshed: a later event is authoritative for the whole call lifecycle.
// The row identity (id, created_at) is immutable once written.
func (r *callRepo) Upsert(ctx context.Context, call *models.Call) (*models.Call, error) {
	if call.VapiCallID == "" {
		return nil, fmt.Errorf("upserting call: call id is required")
	}

	now := time.Now().UTC()
	id := call.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO calls (id, vapi_call_id, org_id, event_type, event_time,
		   call_type, direction, status, ended_reason, cost, duration_seconds,
		   started_at, ended_at, provider, transport,
		   customer_number, customer_sip_uri, phone_number_id,
		   assistant_id, assistant_name, assistant_model, assistant_voice,
		   last_user_message, last_assistant_message, summary,
		   tool_calls_json, artifact_json, call_json, assistant_json,
		   phone_number_json, customer_json, analysis_json, raw_payload,
		   created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(vapi_call_id) DO UPDATE SET
		   org_id = excluded.org_id,
		   event_type = excluded.event_type,
		   event_time = excluded.event_time,
		   call_type = excluded.call_type,
		   direction = excluded.direction,
		   status = excluded.status,
		   ended_reason = excluded.ended_reason,
		   cost = excluded.cost,
		   duration_seconds = excluded.duration_seconds,
		   started_at = excluded.started_at,
		   ended_at = excluded.ended_at,
		   provider = excluded.provider,
		   transport = excluded.transport,
		   customer_number = excluded.customer_number,
		   customer_sip_uri = excluded.customer_sip_uri,
		   phone_number_id = excluded.phone_number_id,
		   assistant_id = excluded.assistant_id,
		   assistant_name = excluded.assistant_name,
		   assistant_model = excluded.assistant_model,
		   assistant_voice = excluded.assistant_voice,
		   last_user_message = excluded.last_user_message,
		   last_assistant_message = excluded.last_assistant_message,
		   summary = excluded.summary,
		   tool_calls_json = excluded.tool_calls_json,
		   artifact_json = excluded.artifact_json,
		   call_json = excluded.call_json,
		   assistant_json = excluded.assistant_json,
		   phone_number_json = excluded.phone_number_json,
		   customer_json = excluded.customer_json,
		   analysis_json = excluded.analysis_json,
		   raw_payload = excluded.raw_payload,
		   updated_at = excluded.updated_at
		 RETURNING `+callColumns,
		id, call.VapiCallID, call.OrgID, call.EventType, call.EventTime,
		call.CallType, call.Direction, call.Status, call.EndedReason, call.Cost, call.DurationSeconds,
		call.StartedAt, call.EndedAt, call.Provider, call.Transport,
		call.CustomerNumber, call.CustomerSIPURI, call.PhoneNumberID,
		call.AssistantID, call.AssistantName, call.AssistantModel, call.AssistantVoice,
		call.LastUserMessage, call.LastAssistantMessage, call.Summary,
		call.ToolCallsJSON, call.ArtifactJSON, call.CallJSON, call.AssistantJSON,
		call.PhoneNumberJSON, call.CustomerJSON, call.AnalysisJSON, call.RawPayload,
		now, now,
	)

	stored, err := scanCall(row)
	if err != nil {
		return nil, fmt.Errorf("upserting call: %w", err)
	}
	return stored, nil
}

// GetByVapiCallID returns the call record for a platform call id, or nil if none.
func (r *callRepo) GetByVapiCallID(ctx context.Context, vapiCallID string) (*models.Call, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE vapi_call_id = ?`, vapiCallID,
	)

	call, err := scanCall(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting call: %w", err)
	}
	return call, nil
}

// Count returns the total number of call records.
func (r *callRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting calls: %w", err)
	}
	return count, nil
}

// CountByDirection returns call counts grouped by direction.
func (r *callRepo) CountByDirection(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT direction, COUNT(*) FROM calls GROUP BY direction`)
	if err != nil {
		return nil, fmt.Errorf("counting calls by direction: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var direction string
		var count int64
		if err := rows.Scan(&direction, &count); err != nil {
			return nil, fmt.Errorf("scanning direction count: %w", err)
		}
		counts[direction] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating direction counts: %w", err)
	}

	return counts, nil
}

func scanCall(row *sql.Row) (*models.Call, error) {
	var c models.Call
	err := row.Scan(&c.ID, &c.VapiCallID, &c.OrgID, &c.EventType, &c.EventTime,
		&c.CallType, &c.Direction, &c.Status, &c.EndedReason, &c.Cost, &c.DurationSeconds,
		&c.StartedAt, &c.EndedAt, &c.Provider, &c.Transport,
		&c.CustomerNumber, &c.CustomerSIPURI, &c.PhoneNumberID,
		&c.AssistantID, &c.AssistantName, &c.AssistantModel, &c.AssistantVoice,
		&c.LastUserMessage, &c.LastAssistantMessage, &c.Summary,
		&c.ToolCallsJSON, &c.ArtifactJSON, &c.CallJSON, &c.AssistantJSON,
		&c.PhoneNumberJSON, &c.CustomerJSON, &c.AnalysisJSON, &c.RawPayload,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
