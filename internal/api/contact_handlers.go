package api

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"unicode/utf8"

	"github.com/voxlog/voxlog/internal/database/models"
)

// maxNameLen is the maximum length for contact name fields.
const maxNameLen = 200

// maxEmailLen is the maximum length for email addresses (RFC 5321).
const maxEmailLen = 254

// emailRe is a basic email format regex. Not exhaustive; validates structure only.
var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// contactRequest is the registry-only upsert body.
type contactRequest struct {
	PhoneNumber string  `json:"phone_number"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
}

// contactResponse echoes the stored row back to the caller.
type contactResponse struct {
	ID          string  `json:"id"`
	PhoneNumber string  `json:"phone_number"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Email       *string `json:"email"`
}

// validate returns an error message for the first invalid field, or "".
func (req *contactRequest) validate() string {
	if req.PhoneNumber == "" {
		return "missing required field: phone_number"
	}
	if utf8.RuneCountInString(req.PhoneNumber) > maxNameLen {
		return "phone_number exceeds maximum length"
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"first_name", req.FirstName},
		{"last_name", req.LastName},
	} {
		if f.value != nil && utf8.RuneCountInString(*f.value) > maxNameLen {
			return f.name + " exceeds maximum length"
		}
	}
	if req.Email != nil && *req.Email != "" {
		if len(*req.Email) > maxEmailLen {
			return "email exceeds maximum length"
		}
		if !emailRe.MatchString(*req.Email) {
			return "email is not a valid email address"
		}
	}
	return ""
}

// handleUpsertContact merge-upserts a contact directly, outside the webhook
// pipeline. Fields already set on the stored contact are never cleared.
func (s *Server) handleUpsertContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	stored, err := s.store.Contacts().Upsert(r.Context(), &models.Contact{
		PhoneNumber: req.PhoneNumber,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store contact")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "success",
		"contact": contactResponse{
			ID:          stored.ID,
			PhoneNumber: stored.PhoneNumber,
			FirstName:   stored.FirstName,
			LastName:    stored.LastName,
			Email:       stored.Email,
		},
	})
}
