package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeChannel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"@news", "news"},
		{"news", "news"},
		{" @news ", "news"},
		{"@ news", "news"},
		{"@News", "News"},
		{"@", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeChannel(tt.in), "input %q", tt.in)
	}
}

func TestCloneIsDeep(t *testing.T) {
	record := NewUserRecord(1)
	record.Preferences = []string{"Remote"}
	record.Channels = []string{"news"}
	record.Jobs = []json.RawMessage{json.RawMessage(`{}`)}

	clone := record.Clone()
	clone.Preferences[0] = "Contract"
	clone.Channels = append(clone.Channels, "gophers")

	assert.Equal(t, []string{"Remote"}, record.Preferences)
	assert.Equal(t, []string{"news"}, record.Channels)
}

func TestRecordSerializesWithOriginalKeys(t *testing.T) {
	record := NewUserRecord(1)
	record.State = StateAwaitingLastName
	record.FirstName = "Ann"

	data, err := json.Marshal(record)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"state":"awaiting_last_name","firstName":"Ann","channels":[],"jobs":[]}`, string(data))
}
