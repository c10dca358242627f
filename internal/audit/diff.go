// Package audit computes field-level diffs for the immutable change log.
// Every administrative edit passes through here: the diff decides whether
// an audit row is written at all, and its output is stored verbatim as
// the changes column.
package audit

import (
	"fmt"
	"sort"
	"time"

	"github.com/crc-dev/volreg-api/internal/models"
	appErrors "github.com/crc-dev/volreg-api/pkg/errors"
)

// RequireJustification rejects empty justifications before any field of
// an update is applied. Whitespace-only text does not count.
func RequireJustification(justification string) error {
	for _, r := range justification {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return nil
		}
	}
	return appErrors.ErrJustificationRequired
}

// Diff compares proposed field values against the current ones and
// returns the non-empty transitions. Comparison is string-normalised:
// both sides are stringified first, so 1 and "1" are the same value.
// That masks pure type reformatting on purpose; the log records what a
// reader of the admin screen would have seen change.
func Diff(old, proposed map[string]interface{}) models.Changes {
	changes := models.Changes{}
	for field, newValue := range proposed {
		before := Stringify(old[field])
		after := Stringify(newValue)
		if before == after {
			continue
		}
		changes[field] = models.FieldChange{From: before, To: after}
	}
	if len(changes) == 0 {
		return nil
	}
	return changes
}

// Fields lists the changed field names in stable order, for log lines.
func Fields(c models.Changes) []string {
	names := make([]string, 0, len(c))
	for field := range c {
		names = append(names, field)
	}
	sort.Strings(names)
	return names
}

// Stringify renders a value the way it appears in the changes column.
// Dates collapse to their day, pointers to their referent, nil to the
// empty string.
func Stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case time.Time:
		return t.Format("2006-01-02")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	case bool:
		if t {
			return "true"
		}
		return "false"
	case *bool:
		if t == nil {
			return ""
		}
		return Stringify(*t)
	case models.Status:
		return string(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
