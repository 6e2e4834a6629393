package certificate

import (
	"strings"

	"github.com/JonMunkholm/certgen/internal/sheet"
)

// IsEmptyRecord reports whether every field of r is blank or whitespace.
func IsEmptyRecord(r sheet.Record) bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// UsableRecords returns the records that are not empty, in order.
func UsableRecords(records []sheet.Record) []sheet.Record {
	usable := make([]sheet.Record, 0, len(records))
	for _, r := range records {
		if !IsEmptyRecord(r) {
			usable = append(usable, r)
		}
	}
	return usable
}

// FindRecord returns the first non-empty record whose identifier cell equals
// query exactly. The boolean is false when nothing matches, when the identifier
// role is unresolved, or when query is empty.
func FindRecord(records []sheet.Record, roles ColumnRoleMap, query string) (sheet.Record, bool) {
	col, ok := roles.Column(RoleIdentifier)
	if !ok || query == "" {
		return nil, false
	}

	for _, r := range records {
		if IsEmptyRecord(r) {
			continue
		}
		if v, ok := r[col]; ok && v == query {
			return r, true
		}
	}
	return nil, false
}
