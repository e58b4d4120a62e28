package mysql

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/bryanwahyu/tumortrack/internal/domain/scans"
)

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// jsonOrEmpty keeps JSON columns valid; invalid input is wrapped as {"raw": ...}.
func jsonOrEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "{}"
	}
	if !json.Valid([]byte(s)) {
		b, _ := json.Marshal(map[string]string{"raw": s})
		return string(b)
	}
	return s
}

func gradeValue(g *scans.Grade) sql.NullString {
	if g == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*g), Valid: true}
}

func gradeFrom(ns sql.NullString) *scans.Grade {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return scans.GradePtr(scans.Grade(ns.String))
}

func normalizePage(page, pageSize int) (int, int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize, (page - 1) * pageSize
}
