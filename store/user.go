package store

import (
	"encoding/json"
	"slices"
	"strings"
)

// DialogueState is the point a user has reached in the onboarding
// dialogue. The zero value means the user has never issued /start.
type DialogueState string

const (
	StateNew                 DialogueState = ""
	StateAwaitingFirstName   DialogueState = "awaiting_first_name"
	StateAwaitingLastName    DialogueState = "awaiting_last_name"
	StateAwaitingPreferences DialogueState = "awaiting_preferences"
	StateReady               DialogueState = "ready"
)

// UserRecord is the persisted onboarding state for one Telegram user.
// The JSON layout matches the original user_data.json documents so
// existing data files keep loading.
type UserRecord struct {
	// UserID is the Telegram user identifier; it is the document key,
	// not part of the serialized record.
	UserID int64 `json:"-"`

	State     DialogueState `json:"state"`
	FirstName string        `json:"firstName,omitempty"`
	LastName  string        `json:"lastName,omitempty"`
	// Preferences is ordered and may contain duplicates; the dialogue
	// appends whatever the user sends.
	Preferences []string `json:"preferences,omitempty"`
	// Channels is deduplicated, stored without the leading @.
	Channels []string `json:"channels"`
	// Jobs is reserved; nothing in the dialogue writes it, but stored
	// entries must round-trip untouched.
	Jobs []json.RawMessage `json:"jobs"`
}

// NewUserRecord returns the default record an unknown user starts from.
func NewUserRecord(userID int64) *UserRecord {
	return &UserRecord{
		UserID:   userID,
		State:    StateNew,
		Channels: []string{},
		Jobs:     []json.RawMessage{},
	}
}

// Clone returns a deep copy so transition logic can mutate freely
// without aliasing the cached record.
func (u *UserRecord) Clone() *UserRecord {
	clone := *u
	clone.Preferences = slices.Clone(u.Preferences)
	clone.Channels = slices.Clone(u.Channels)
	clone.Jobs = slices.Clone(u.Jobs)
	return &clone
}

// HasChannel reports whether the normalized channel handle is already
// registered.
func (u *UserRecord) HasChannel(channel string) bool {
	return slices.Contains(u.Channels, channel)
}

// NormalizeChannel strips a leading @ and surrounding whitespace from a
// channel handle.
func NormalizeChannel(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "@"))
}
