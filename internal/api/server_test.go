package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voxlog/voxlog/internal/config"
	"github.com/voxlog/voxlog/internal/database"
	"github.com/voxlog/voxlog/internal/ingest"
)

const testSecret = "test-secret"

type stubEnricher struct {
	summary string
	err     error
}

func (s stubEnricher) FetchSummary(ctx context.Context, callID string) (string, error) {
	return s.summary, s.err
}

func newTestServer(t *testing.T) (*Server, *database.DB) {
	t.Helper()
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		WebhookSecret:  testSecret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	processor := ingest.NewProcessor(db, stubEnricher{summary: "fetched summary"}, true, nil)
	srv := NewServer(db, processor, cfg, nil)
	t.Cleanup(srv.Close)
	return srv, db
}

func doRequest(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("response is not JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return got
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeBody(t, rec); got["status"] != "ok" {
		t.Errorf("body = %v, want status ok", got)
	}
}

func TestSubmitCallAuth(t *testing.T) {
	srv, db := newTestServer(t)
	body := `{"message":{"type":"end-of-call-report","call":{"id":"call-1"}}}`

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "wrong", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/submit_call", tt.token, body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			got := decodeBody(t, rec)
			if msg, _ := got["error"].(string); msg == "" {
				t.Errorf("body = %v, want an error message", got)
			}
		})
	}

	// Rejected requests must leave no trace in storage.
	count, err := db.Calls().Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 0 {
		t.Errorf("call rows = %d, want 0 after rejected requests", count)
	}
}

func TestSubmitCallUnconfiguredSecret(t *testing.T) {
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{RateLimitRPS: 1000, RateLimitBurst: 1000}
	srv := NewServer(db, ingest.NewProcessor(db, nil, false, nil), cfg, nil)
	t.Cleanup(srv.Close)

	rec := doRequest(srv, http.MethodPost, "/submit_call", "anything", `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 when no secret is configured", rec.Code)
	}
}

func TestSubmitCallEndOfCallReport(t *testing.T) {
	srv, db := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/submit_call", testSecret, `{"message":{
		"type":"end-of-call-report",
		"call":{"id":"call-1","type":"inboundPhoneCall","status":"ended"},
		"customer":{"number":"+15550001111"},
		"analysis":{"summary":"booked an appointment"}
	}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	got := decodeBody(t, rec)
	if got["status"] != "success" {
		t.Errorf("status field = %v, want success", got["status"])
	}
	if got["call_id"] == nil || got["call_id"] == "" {
		t.Errorf("call_id missing from ack: %v", got)
	}
	if got["contact_id"] == nil || got["contact_id"] == "" {
		t.Errorf("contact_id missing from ack: %v", got)
	}

	stored, err := db.Calls().GetByVapiCallID(context.Background(), "call-1")
	if err != nil {
		t.Fatalf("GetByVapiCallID() error: %v", err)
	}
	if stored == nil {
		t.Fatal("call not persisted")
	}
	if stored.Direction != "inbound" {
		t.Errorf("Direction = %q, want inbound", stored.Direction)
	}
}

func TestSubmitCallToolResultEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/submit_call", testSecret, `{"message":{
		"type":"tool-calls",
		"call":{"id":"call-2"},
		"toolCallList":[{"id":"tc-9"}]
	}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Results []struct {
			ToolCallID string         `json:"toolCallId"`
			Result     map[string]any `json:"result"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if len(envelope.Results) != 1 {
		t.Fatalf("results len = %d, want 1", len(envelope.Results))
	}
	if envelope.Results[0].ToolCallID != "tc-9" {
		t.Errorf("toolCallId = %q, want tc-9", envelope.Results[0].ToolCallID)
	}
	if envelope.Results[0].Result["status"] != "success" {
		t.Errorf("result = %v, want status success", envelope.Results[0].Result)
	}
}

func TestSubmitCallIgnoredEvent(t *testing.T) {
	srv, db := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/submit_call", testSecret,
		`{"message":{"type":"status-update","call":{"id":"call-3"}}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeBody(t, rec)
	if got["status"] != "ignored" {
		t.Errorf("status field = %v, want ignored", got["status"])
	}

	count, err := db.Calls().Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error: %v", err)
	}
	if count != 0 {
		t.Errorf("call rows = %d, want 0 for ignored event", count)
	}
}

func TestSubmitCallValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/submit_call", testSecret, `not json`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("missing call id", func(t *testing.T) {
		rec := doRequest(srv, http.MethodPost, "/submit_call", testSecret,
			`{"message":{"type":"end-of-call-report"}}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		got := decodeBody(t, rec)
		errMsg, _ := got["error"].(string)
		if !strings.Contains(errMsg, "call id") {
			t.Errorf("error = %q, want a field-specific message", errMsg)
		}
	})
}

func TestUpsertContact(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/contacts", testSecret,
		`{"phone_number":"+15552223333","first_name":"Calvin","email":"calvin@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	got := decodeBody(t, rec)
	if got["status"] != "success" {
		t.Errorf("status field = %v, want success", got["status"])
	}
	contact, ok := got["contact"].(map[string]any)
	if !ok {
		t.Fatalf("contact field missing: %v", got)
	}
	if contact["phone_number"] != "+15552223333" {
		t.Errorf("phone_number = %v", contact["phone_number"])
	}
	if contact["first_name"] != "Calvin" {
		t.Errorf("first_name = %v", contact["first_name"])
	}
	if contact["last_name"] != nil {
		t.Errorf("last_name = %v, want null", contact["last_name"])
	}
}

func TestUpsertContactAccumulates(t *testing.T) {
	srv, _ := newTestServer(t)

	if rec := doRequest(srv, http.MethodPost, "/contacts", testSecret,
		`{"phone_number":"+15554445555","first_name":"A"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first upsert status = %d", rec.Code)
	}
	rec := doRequest(srv, http.MethodPost, "/contacts", testSecret,
		`{"phone_number":"+15554445555","last_name":"B"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second upsert status = %d", rec.Code)
	}

	contact := decodeBody(t, rec)["contact"].(map[string]any)
	if contact["first_name"] != "A" || contact["last_name"] != "B" {
		t.Errorf("contact = %v, want accumulated first A last B", contact)
	}
}

func TestUpsertContactValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing phone", `{"first_name":"A"}`, "phone_number"},
		{"bad json", `{`, "invalid JSON"},
		{"bad email", `{"phone_number":"+15550000000","email":"not-an-email"}`, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/contacts", testSecret, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			errMsg, _ := decodeBody(t, rec)["error"].(string)
			if !strings.Contains(errMsg, tt.want) {
				t.Errorf("error = %q, want mention of %q", errMsg, tt.want)
			}
		})
	}
}

func TestContactsRequireAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(srv, http.MethodPost, "/contacts", "", `{"phone_number":"+15550000001"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
