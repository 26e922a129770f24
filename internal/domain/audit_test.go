package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditChangesDiffRoundTrip(t *testing.T) {
	changes := DiffChanges(map[string]FieldChange{
		"status":   {From: "open", To: "in_progress"},
		"priority": {From: "medium", To: "high"},
	})

	raw, err := json.Marshal(changes)
	require.NoError(t, err)

	// Diff entries are stored as a bare field map, no wrapper key.
	var probe map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &probe))
	assert.Contains(t, probe, "status")
	assert.NotContains(t, probe, "deletedSnapshot")

	var decoded AuditChanges
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.NotNil(t, decoded.FieldDiffs)
	assert.Equal(t, "open", decoded.FieldDiffs["status"].From)
	assert.Equal(t, "in_progress", decoded.FieldDiffs["status"].To)
	assert.Len(t, decoded.FieldDiffs, 2)
	assert.False(t, decoded.RestoredFromDelete)
	assert.Empty(t, decoded.DeletedSnapshot)
}

func TestAuditChangesSnapshotRoundTrip(t *testing.T) {
	user := User{
		ID:       "u-1",
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Role:     RoleWorker,
		IsActive: true,
	}

	changes, err := SnapshotChanges(user)
	require.NoError(t, err)

	raw, err := json.Marshal(changes)
	require.NoError(t, err)

	var probe map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &probe))
	require.Contains(t, probe, "deletedSnapshot")

	var decoded AuditChanges
	require.NoError(t, json.Unmarshal(raw, &decoded))

	var restored User
	require.NoError(t, decoded.Snapshot(&restored))
	assert.Equal(t, user.ID, restored.ID)
	assert.Equal(t, user.Email, restored.Email)
	assert.Equal(t, user.Role, restored.Role)
}

func TestAuditChangesRestoreMarkerRoundTrip(t *testing.T) {
	raw, err := json.Marshal(RestoreChanges())
	require.NoError(t, err)
	assert.JSONEq(t, `{"restoredFromDelete":true}`, string(raw))

	var decoded AuditChanges
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.RestoredFromDelete)
	assert.Nil(t, decoded.FieldDiffs)
}

func TestAuditChangesSnapshotErrorsWithoutPayload(t *testing.T) {
	var dst User
	err := DiffChanges(nil).Snapshot(&dst)
	assert.Error(t, err)
}

func TestSanitizedStripsPasswordHash(t *testing.T) {
	user := User{ID: "u-1", PasswordHash: "$2a$12$abc"}
	assert.Empty(t, user.Sanitized().PasswordHash)
	assert.Equal(t, "u-1", user.Sanitized().ID)
}
