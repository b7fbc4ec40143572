package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventUserLoggedIn   EventType = "user_logged_in"
	EventLoginFailed    EventType = "login_failed"
)

// Event represents an auth event emitted by the credential gateway.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent stamps a fresh id and timestamp.
func NewEvent(eventType EventType, email string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Email:     email,
		Timestamp: time.Now().UTC(),
	}
}

// ForUser fills subject fields from user.
func (e Event) ForUser(user *domain.User) Event {
	if user != nil {
		e.SubjectID = user.ID
		e.Role = user.Role
	}
	return e
}
