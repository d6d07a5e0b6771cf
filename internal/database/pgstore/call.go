package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxlog/voxlog/internal/database/models"
)

// callRepo implements database.CallRepository on PostgreSQL.
type callRepo struct {
	db *sql.DB
}

const callColumns = `id, vapi_call_id, org_id, event_type, event_time,
	 call_type, direction, status, ended_reason, cost, duration_seconds,
	 started_at, ended_at, provider, transport,
	 customer_number, customer_sip_uri, phone_number_id,
	 assistant_id, assistant_name, assistant_model, assistant_voice,
	 last_user_message, last_assistant_message, summary,
	 tool_calls_json, artifact_json, call_json, assistant_json,
	 phone_number_json, customer_json, analysis_json, raw_payload,
	 created_at, updated_at`

// Upsert inserts or fully overwrites a call record keyed on vapi_call_id,
// with the same newest-wins law as the SQLite store.
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		   $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29,
		   $30, $31, $32, $33, $34, $35)
		 ON CONFLICT (vapi_call_id) DO UPDATE SET
		   org_id = EXCLUDED.org_id,
		   event_type = EXCLUDED.event_type,
		   event_time = EXCLUDED.event_time,
		   call_type = EXCLUDED.call_type,
		   direction = EXCLUDED.direction,
		   status = EXCLUDED.status,
		   ended_reason = EXCLUDED.ended_reason,
		   cost = EXCLUDED.cost,
		   duration_seconds = EXCLUDED.duration_seconds,
		   started_at = EXCLUDED.started_at,
		   ended_at = EXCLUDED.ended_at,
		   provider = EXCLUDED.provider,
		   transport = EXCLUDED.transport,
		   customer_number = EXCLUDED.customer_number,
		   customer_sip_uri = EXCLUDED.customer_sip_uri,
		   phone_number_id = EXCLUDED.phone_number_id,
		   assistant_id = EXCLUDED.assistant_id,
		   assistant_name = EXCLUDED.assistant_name,
		   assistant_model = EXCLUDED.assistant_model,
		   assistant_voice = EXCLUDED.assistant_voice,
		   last_user_message = EXCLUDED.last_user_message,
		   last_assistant_message = EXCLUDED.last_assistant_message,
		   summary = EXCLUDED.summary,
		   tool_calls_json = EXCLUDED.tool_calls_json,
		   artifact_json = EXCLUDED.artifact_json,
		   call_json = EXCLUDED.call_json,
		   assistant_json = EXCLUDED.assistant_json,
		   phone_number_json = EXCLUDED.phone_number_json,
		   customer_json = EXCLUDED.customer_json,
		   analysis_json = EXCLUDED.analysis_json,
		   raw_payload = EXCLUDED.raw_payload,
		   updated_at = EXCLUDED.updated_at
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
		`SELECT `+callColumns+` FROM calls WHERE vapi_call_id = $1`, vapiCallID,
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
