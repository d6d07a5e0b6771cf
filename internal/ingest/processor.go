// Package ingest runs the webhook event pipeline: parse, classify, extract,
// enrich, persist. Each inbound event is one independent synchronous unit of
// work; the storage layer's atomic upserts are the only ordering mechanism
// between concurrent events for the same call.
package ingest

import (
	"context"
	"log/slog"

	"github.com/voxlog/voxlog/internal/database"
	"github.com/voxlog/voxlog/internal/database/models"
	"github.com/voxlog/voxlog/internal/webhook"
)

// diagnosticPrefix marks summaries that are enrichment failure breadcrumbs
// rather than product data, so they can be filtered out downstream.
const diagnosticPrefix = "summary unavailable"

// SummaryFetcher retrieves a call summary from the platform API.
// Implemented by vapi.Client.
type SummaryFetcher interface {
	FetchSummary(ctx context.Context, callID string) (string, error)
}

// Result is the outcome of processing one event, shaped into a response by
// the API layer.
type Result struct {
	Status     string // "success" or "ignored"
	EventType  string
	ToolCallID string // non-empty when the caller expects a tool-result envelope
	VapiCallID string
	CallID     string // stored row id
	ContactID  string // stored contact row id, if a contact was upserted
}

// Processor wires the pipeline components together.
type Processor struct {
	contacts database.ContactRepository
	calls    database.CallRepository
	enricher SummaryFetcher
	enrich   bool
	metrics  *Metrics
}

// NewProcessor creates a Processor. enricher may be nil to disable summary
// enrichment entirely; enrich gates it at runtime without rewiring.
func NewProcessor(store database.Store, enricher SummaryFetcher, enrich bool, metrics *Metrics) *Processor {
	return &Processor{
		contacts: store.Contacts(),
		calls:    store.Calls(),
		enricher: enricher,
		enrich:   enrich,
		metrics:  metrics,
	}
}

// ProcessEvent runs one webhook body through the pipeline. It returns a
// *ValidationError for malformed or incomplete payloads and a *StorageError
// for persistence failures; enrichment failures never surface as errors.
func (p *Processor) ProcessEvent(ctx context.Context, body []byte) (*Result, error) {
	env, err := webhook.Parse(body)
	if err != nil {
		return nil, &ValidationError{Reason: "invalid JSON body"}
	}

	kind, eventType := webhook.Classify(env)
	toolCallID := webhook.ToolCallID(env)

	// Unknown event types are acknowledged and dropped, never failed:
	// the platform emits more types than this service persists.
	if kind == webhook.KindUnrecognized {
		slog.Info("ignoring unrecognized event type", "event_type", eventType)
		p.metrics.observeEvent(eventType, "ignored")
		return &Result{
			Status:     "ignored",
			EventType:  eventType,
			ToolCallID: toolCallID,
		}, nil
	}

	record := webhook.ExtractCall(env, eventType)
	if record.VapiCallID == "" {
		p.metrics.observeEvent(eventType, "rejected")
		return nil, &ValidationError{Reason: "missing required field: call id"}
	}

	result := &Result{
		Status:     "success",
		EventType:  eventType,
		ToolCallID: toolCallID,
		VapiCallID: record.VapiCallID,
	}

	// Contact and call rows are upserted independently; neither references
	// the other at the schema level, so order does not matter.
	if record.CustomerNumber != nil && *record.CustomerNumber != "" {
		contact, err := p.upsertContact(ctx, env, *record.CustomerNumber)
		if err != nil {
			p.metrics.observeEvent(eventType, "storage_error")
			return nil, &StorageError{Op: "upserting contact", Err: err}
		}
		result.ContactID = contact.ID
	}

	p.enrichSummary(ctx, record)

	stored, err := p.calls.Upsert(ctx, record)
	if err != nil {
		p.metrics.observeEvent(eventType, "storage_error")
		return nil, &StorageError{Op: "upserting call", Err: err}
	}
	result.CallID = stored.ID

	slog.Info("call event persisted",
		"event_type", eventType,
		"call_id", record.VapiCallID,
		"direction", stored.Direction,
		"tool_call_id", toolCallID,
	)
	p.metrics.observeEvent(eventType, "persisted")

	return result, nil
}

// upsertContact merge-upserts the customer into the contact registry.
func (p *Processor) upsertContact(ctx context.Context, env *webhook.Envelope, number string) (*models.Contact, error) {
	contact := &models.Contact{PhoneNumber: number}
	if name, ok := get(webhook.Customer(env), "name"); ok && name != "" {
		contact.FirstName = &name
	}
	return p.contacts.Upsert(ctx, contact)
}

// get reads a string key from a possibly-nil object.
func get(obj map[string]any, key string) (string, bool) {
	if obj == nil {
		return "", false
	}
	s, ok := obj[key].(string)
	return s, ok
}

// enrichSummary fills in a missing summary via the platform API. Best
// effort: a failure stores a diagnostic breadcrumb instead of aborting the
// event, so a stalled or broken platform API can never fail ingestion.
func (p *Processor) enrichSummary(ctx context.Context, record *models.Call) {
	if !p.enrich || p.enricher == nil || record.Summary != nil {
		return
	}

	summary, err := p.enricher.FetchSummary(ctx, record.VapiCallID)
	if err != nil {
		slog.Warn("summary enrichment failed",
			"call_id", record.VapiCallID,
			"error", err,
		)
		p.metrics.observeEnrichmentFailure()
		diag := diagnosticPrefix + ": " + err.Error()
		record.Summary = &diag
		return
	}

	record.Summary = &summary
}
