package services

import "strconv"

// Table is a rectangular grid of strings with named columns. Rows are
// aligned to the column count on construction: short rows are padded with
// empty strings, long rows are projected onto the header width.
type Table struct {
	Columns []string
	Rows    [][]string
}

func NewTable(columns []string, rows [][]string) Table {
	aligned := make([][]string, 0, len(rows))
	for _, row := range rows {
		aligned = append(aligned, alignRow(row, len(columns)))
	}

	return Table{
		Columns: columns,
		Rows:    aligned,
	}
}

// NewPositionalTable builds a table whose columns are the indices
// "0", "1", ... sized to the widest row.
func NewPositionalTable(rows [][]string) Table {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := make([]string, width)
	for i := range columns {
		columns[i] = strconv.Itoa(i)
	}

	return NewTable(columns, rows)
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

func (t Table) ColumnIndex(name string) int {
	for i, column := range t.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// WithConstantColumn returns a copy of the table with one extra trailing
// column holding the same value in every row.
func (t Table) WithConstantColumn(name string, value string) Table {
	columns := make([]string, 0, len(t.Columns)+1)
	columns = append(columns, t.Columns...)
	columns = append(columns, name)

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		extended := make([]string, 0, len(row)+1)
		extended = append(extended, row...)
		extended = append(extended, value)
		rows = append(rows, extended)
	}

	return Table{Columns: columns, Rows: rows}
}

func alignRow(row []string, length int) []string {
	aligned := make([]string, length)
	copy(aligned, row)
	return aligned
}
