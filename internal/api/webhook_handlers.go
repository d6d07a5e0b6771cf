package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/voxlog/voxlog/internal/ingest"
)

// ack is the plain acknowledgement body for webhook-style callers.
type ack struct {
	Status    string `json:"status"`
	EventType string `json:"event_type,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
}

// toolResult correlates one reply to one tool-call id. Synchronous
// tool-invocation callers match replies to requests by this id, so it must
// echo the inbound value exactly.
type toolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
}

type toolResultEnvelope struct {
	Results []toolResult `json:"results"`
}

// handleSubmitCall ingests one webhook event and responds in whichever of
// the two protocols the caller expects.
func (s *Server) handleSubmitCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	result, err := s.processor.ProcessEvent(r.Context(), body)
	if err != nil {
		var vErr *ingest.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Error())
			return
		}
		var sErr *ingest.StorageError
		if errors.As(err, &sErr) {
			writeError(w, http.StatusInternalServerError, sErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, formatResult(result))
}

// formatResult shapes a pipeline result for the wire. Events that carried a
// tool-call id get the tool-result envelope; everything else gets the plain
// acknowledgement.
func formatResult(result *ingest.Result) any {
	body := ack{
		Status:    result.Status,
		EventType: result.EventType,
		CallID:    result.CallID,
		ContactID: result.ContactID,
	}

	if result.ToolCallID == "" {
		return body
	}
	return toolResultEnvelope{
		Results: []toolResult{{ToolCallID: result.ToolCallID, Result: body}},
	}
}
