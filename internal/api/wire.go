package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docdisk/internal/docdisk"
)

// Timestamp is a backend time. The service emits naive UTC timestamps
// ("2024-01-15T10:30:00.123456") as well as RFC 3339 ones; both are accepted.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		// Layouts without a zone parse as UTC.
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	PIN      string `json:"pin"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt Timestamp `json:"created_at"`
}

func (u userResponse) identity() *docdisk.Identity {
	return &docdisk.Identity{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt.Time}
}

type documentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

func (d documentResponse) document() docdisk.Document {
	return docdisk.Document{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		UserID:    d.UserID,
		CreatedAt: d.CreatedAt.Time,
		UpdatedAt: d.UpdatedAt.Time,
	}
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

type validationEntry struct {
	Msg string `json:"msg"`
}

// responseError builds the error for a non-2xx answer from its body.
func responseError(status int, body []byte) *docdisk.ResponseError {
	re := &docdisk.ResponseError{StatusCode: status}

	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return re
	}
	raw := strings.TrimSpace(string(er.Detail))
	if raw == "" || raw == "null" {
		return re
	}

	var detail string
	if err := json.Unmarshal(er.Detail, &detail); err == nil {
		re.Detail = detail
		return re
	}

	var entries []validationEntry
	if err := json.Unmarshal(er.Detail, &entries); err == nil && len(entries) > 0 {
		for _, e := range entries {
			re.Messages = append(re.Messages, e.Msg)
		}
		return re
	}

	re.MalformedDetail = true
	return re
}
