package postgres

import (
	"strings"
	"time"
)

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}

// searchPattern turns caller-supplied free text into an ILIKE pattern,
// escaping the LIKE wildcards so user input is matched literally. Quote
// characters ride through as bound parameters, never composed into SQL.
func searchPattern(search string) string {
	s := strings.TrimSpace(search)
	if s == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
