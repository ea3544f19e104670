package services

import (
	"strconv"
	"strings"
)

const keyColumnIndex = 1

type CleanService struct{}

func NewCleanService() (*CleanService, error) {
	return &CleanService{}, nil
}

// Clean normalizes a parsed table: stray quote characters are stripped from
// free-text columns, rows without the mandatory key column are dropped, and
// exact duplicate rows are removed keeping the first occurrence. Cleaning
// never adds rows and is idempotent.
func (s *CleanService) Clean(table Table) Table {
	if s == nil || table.Empty() {
		return table
	}

	table = stripQuotes(table)
	table = dropMissingKeyRows(table)
	table = dropDuplicateRows(table)
	return table
}

// stripQuotes removes single-quote characters from every cell of non-numeric
// columns. Quotes show up as formula-escaping artifacts in exported sheets.
func stripQuotes(table Table) Table {
	textColumn := make([]bool, len(table.Columns))
	for i := range table.Columns {
		textColumn[i] = !columnIsNumeric(table, i)
	}

	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		cleaned := make([]string, len(row))
		for i, cell := range row {
			if i < len(textColumn) && textColumn[i] {
				cleaned[i] = strings.ReplaceAll(cell, "'", "")
				continue
			}
			cleaned[i] = cell
		}
		rows = append(rows, cleaned)
	}

	return Table{Columns: table.Columns, Rows: rows}
}

func columnIsNumeric(table Table, index int) bool {
	seen := false
	for _, row := range table.Rows {
		if index >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[index])
		if value == "" {
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// dropMissingKeyRows removes rows whose second column is empty, whitespace
// or the literal "nan" — blank separators and trailing totals in exports.
func dropMissingKeyRows(table Table) Table {
	if len(table.Columns) < 2 {
		return table
	}

	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		if keyColumnIndex >= len(row) {
			continue
		}
		key := strings.TrimSpace(row[keyColumnIndex])
		if key == "" || strings.EqualFold(key, "nan") {
			continue
		}
		rows = append(rows, row)
	}

	return Table{Columns: table.Columns, Rows: rows}
}

func dropDuplicateRows(table Table) Table {
	seen := make(map[string]struct{}, len(table.Rows))
	rows := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, row)
	}

	return Table{Columns: table.Columns, Rows: rows}
}
