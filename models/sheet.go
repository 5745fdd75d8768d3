package models

import (
	"fmt"
	"strings"
)

// Sheet is one worksheet as returned by excelize: a header row followed by
// string cells. All typing happens at the normalization boundary, never later.
type Sheet struct {
	Header []string
	Rows   [][]string
}

// Ledger side names used in error reporting.
const (
	SideIssue    = "issue"
	SideReceived = "received"
)

// SchemaError reports a required column missing from an uploaded ledger.
type SchemaError struct {
	Side   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s ledger is missing required column %q", e.Side, e.Column)
}

// columnIndex maps trimmed header names to their position. Duplicate headers
// keep the first occurrence, matching how the source spreadsheets are read.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := idx[name]; !ok {
			idx[name] = i
		}
	}
	return idx
}

// cellAt returns the trimmed cell at col, or "" when the row is short.
// excelize drops trailing empty cells, so short rows are normal.
func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}
