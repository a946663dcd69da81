package sqlxrepos

import (
	"strings"

	"github.com/google/uuid"
)

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func splitColumns(columns string) []string {
	parts := strings.Split(columns, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		if c := strings.TrimSpace(p); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}

func prefixed(prefix, columns string) string {
	cols := splitColumns(columns)
	for i := range cols {
		cols[i] = prefix + cols[i]
	}
	return strings.Join(cols, ", ")
}

func namedParams(columns string) string {
	cols := splitColumns(columns)
	for i, c := range cols {
		cols[i] = ":" + c
	}
	return strings.Join(cols, ", ")
}

// excludedSet builds the SET clause of an upsert, overwriting every column but id.
func excludedSet(columns string) string {
	cols := splitColumns(columns)
	set := make([]string, 0, len(cols))
	for _, c := range cols {
		if c != "id" {
			set = append(set, c+" = EXCLUDED."+c)
		}
	}
	return strings.Join(set, ", ")
}
