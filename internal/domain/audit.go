package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// ActionType captures what kind of mutation an audit entry records.
type ActionType string

const (
	ActionCreate   ActionType = "create"
	ActionUpdate   ActionType = "update"
	ActionDelete   ActionType = "delete"
	ActionApprove  ActionType = "approve"
	ActionReject   ActionType = "reject"
	ActionRollback ActionType = "rollback"
)

// EntityType names the table an audit entry refers to.
type EntityType string

const (
	EntityUser   EntityType = "user"
	EntityTicket EntityType = "ticket"
)

// FieldChange records a single field transition inside an update entry.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// AuditChanges is the payload of an audit entry. Exactly one of the three
// variants is set: FieldDiffs for updates, DeletedSnapshot for deletes,
// RestoredFromDelete for rollbacks. Create entries use FieldDiffs with
// from=nil values.
type AuditChanges struct {
	FieldDiffs         map[string]FieldChange
	DeletedSnapshot    json.RawMessage
	RestoredFromDelete bool
}

// DiffChanges builds the field-diff variant.
func DiffChanges(diffs map[string]FieldChange) AuditChanges {
	return AuditChanges{FieldDiffs: diffs}
}

// SnapshotChanges builds the deleted-snapshot variant from an entity.
func SnapshotChanges(entity any) (AuditChanges, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return AuditChanges{}, err
	}
	return AuditChanges{DeletedSnapshot: raw}, nil
}

// RestoreChanges builds the restored-from-delete marker variant.
func RestoreChanges() AuditChanges {
	return AuditChanges{RestoredFromDelete: true}
}

// MarshalJSON keeps the three historical shapes: a bare diff map, a
// {"deletedSnapshot": ...} object, or {"restoredFromDelete": true}.
func (c AuditChanges) MarshalJSON() ([]byte, error) {
	switch {
	case len(c.DeletedSnapshot) > 0:
		return json.Marshal(map[string]json.RawMessage{"deletedSnapshot": c.DeletedSnapshot})
	case c.RestoredFromDelete:
		return json.Marshal(map[string]bool{"restoredFromDelete": true})
	default:
		if c.FieldDiffs == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(c.FieldDiffs)
	}
}

// UnmarshalJSON shape-sniffs the stored payload back into the variant type.
func (c *AuditChanges) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if raw, ok := probe["deletedSnapshot"]; ok {
		c.DeletedSnapshot = raw
		return nil
	}
	if raw, ok := probe["restoredFromDelete"]; ok {
		return json.Unmarshal(raw, &c.RestoredFromDelete)
	}
	diffs := make(map[string]FieldChange, len(probe))
	for field, raw := range probe {
		var change FieldChange
		if err := json.Unmarshal(raw, &change); err != nil {
			return err
		}
		diffs[field] = change
	}
	c.FieldDiffs = diffs
	return nil
}

// Snapshot decodes the deleted-snapshot payload into dst.
func (c AuditChanges) Snapshot(dst any) error {
	if len(c.DeletedSnapshot) == 0 {
		return errors.New("audit entry carries no snapshot")
	}
	return json.Unmarshal(c.DeletedSnapshot, dst)
}

// AuditEntry is an immutable record of an entity mutation. Entries are never
// updated or deleted; delete entries are the sole source for restores.
type AuditEntry struct {
	ID         string
	ActionType ActionType
	EntityType EntityType
	EntityID   string
	ActorID    *string
	Changes    AuditChanges
	Reason     *string
	CreatedAt  time.Time
}
