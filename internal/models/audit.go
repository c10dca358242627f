package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditAction constants represent the kinds of change that get logged.
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
)

// FieldChange records one field's before and after values. Values are
// stringified before comparison and storage, so type-level reformatting
// (1 vs "1") does not register as a change.
type FieldChange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Changes maps changed field names to their transitions. It serialises
// to a jsonb column.
type Changes map[string]FieldChange

// Value implements driver.Valuer for jsonb persistence.
func (c Changes) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner.
func (c *Changes) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = nil
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("unsupported changes type %T", src)
	}
}

// AuditLog is an immutable record of one administrative change. Rows are
// written exclusively by the audit engine inside the same transaction as
// the entity save; no update or delete path exists anywhere in the
// system.
type AuditLog struct {
	ID            string    `db:"id" json:"id"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	UserEmail     *string   `db:"user_email" json:"user_email,omitempty"`
	Action        string    `db:"action" json:"action"`
	Entity        string    `db:"entity" json:"entity"`
	RecordID      string    `db:"record_id" json:"record_id"`
	Changes       Changes   `db:"changes" json:"changes"`
	Justification string    `db:"justification" json:"justification"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter provides filters for listing audit entries.
type AuditLogFilter struct {
	Entity    string
	Action    string
	UserID    string
	RecordID  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	SortOrder string
}
