package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRangeNotFound marks reads against a tab that does not exist yet.
// Ledger operations treat it as an empty tab, never as a failure; store
// adapters are expected to map their backend's error shape onto it.
var ErrRangeNotFound = errors.New("range not found")

type LedgerService struct {
	store      LedgerStore
	logService LogWriter
}

func NewLedgerService(store LedgerStore, logService LogWriter) (*LedgerService, error) {
	if store == nil {
		return nil, errors.New("ledger store is nil")
	}
	if logService == nil {
		return nil, errors.New("log service is nil")
	}

	return &LedgerService{
		store:      store,
		logService: logService,
	}, nil
}

// ExistingSources collects the distinct non-empty values of the source-file
// column across all data rows. A missing tab or a header without the column
// yields an empty set: a brand-new ledger has ingested nothing.
func (s *LedgerService) ExistingSources(ctx context.Context, spreadsheetID string, tab string, sourceColumn string) (map[string]struct{}, error) {
	if s == nil {
		return nil, errors.New("ledger service is nil")
	}
	if sourceColumn == "" {
		return nil, errors.New("source column is empty")
	}

	rows, err := s.readTab(ctx, spreadsheetID, tab)
	if err != nil {
		return nil, err
	}

	sources := make(map[string]struct{})
	if len(rows) <= 1 {
		return sources, nil
	}

	columnIndex := -1
	for i, name := range rows[0] {
		if name == sourceColumn {
			columnIndex = i
			break
		}
	}
	if columnIndex == -1 {
		return sources, nil
	}

	for _, row := range rows[1:] {
		if columnIndex >= len(row) {
			continue
		}
		value := row[columnIndex]
		if strings.TrimSpace(value) == "" {
			continue
		}
		sources[value] = struct{}{}
	}

	return sources, nil
}

// HasData reports whether the tab holds at least one data row beyond a
// putative header.
func (s *LedgerService) HasData(ctx context.Context, spreadsheetID string, tab string) (bool, error) {
	if s == nil {
		return false, errors.New("ledger service is nil")
	}

	rows, err := s.readTab(ctx, spreadsheetID, tab)
	if err != nil {
		return false, err
	}

	return len(rows) > 1, nil
}

// Append writes the table to the end of the tab in one call, with the
// source-file column moved last. Whether the header row is written is the
// caller's decision: it must hold exactly once per run, for the first file
// appended into a tab that had no data. Returns the count of data rows
// written, excluding any header.
func (s *LedgerService) Append(ctx context.Context, spreadsheetID string, tab string, table Table, sourceColumn string, includeHeader bool) (int, error) {
	if s == nil {
		return 0, errors.New("ledger service is nil")
	}
	if s.store == nil {
		return 0, errors.New("ledger store is nil")
	}
	if table.Empty() {
		return 0, nil
	}

	order, err := columnOrderWithSourceLast(table, sourceColumn)
	if err != nil {
		return 0, err
	}

	values := make([][]string, 0, len(table.Rows)+1)
	if includeHeader {
		values = append(values, projectRow(table.Columns, order))
	}
	for _, row := range table.Rows {
		values = append(values, projectRow(row, order))
	}

	if err := s.store.AppendRows(ctx, spreadsheetID, tab, values); err != nil {
		failMsg := fmt.Sprintf("append rows=%d tab=%s: %v", len(table.Rows), tab, err)
		_ = s.logService.CreateLog(ctx, nil, LogActionLedgerAppend, LogOutcomeFail, &failMsg)
		return 0, fmt.Errorf("append rows: %w", err)
	}

	successMsg := fmt.Sprintf("appended rows=%d tab=%s header=%t", len(table.Rows), tab, includeHeader)
	_ = s.logService.CreateLog(ctx, nil, LogActionLedgerAppend, LogOutcomeSuccess, &successMsg)

	return len(table.Rows), nil
}

// DeduplicateAll reads the whole tab, drops exact duplicate data rows
// keeping first occurrence, and rewrites header plus survivors in one
// replace when anything was removed. This is a maintenance pass over the
// full ledger, run at most once per batch, never per file.
func (s *LedgerService) DeduplicateAll(ctx context.Context, spreadsheetID string, tab string, sourceColumn string) (int, error) {
	if s == nil {
		return 0, errors.New("ledger service is nil")
	}
	if s.store == nil {
		return 0, errors.New("ledger store is nil")
	}

	rows, err := s.readTab(ctx, spreadsheetID, tab)
	if err != nil {
		return 0, err
	}
	if len(rows) <= 1 {
		return 0, nil
	}

	header := rows[0]
	seen := make(map[string]struct{}, len(rows)-1)
	kept := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}

	removed := len(rows) - 1 - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := s.store.ClearRange(ctx, spreadsheetID, tab); err != nil {
		failMsg := fmt.Sprintf("clear tab=%s: %v", tab, err)
		_ = s.logService.CreateLog(ctx, nil, LogActionLedgerDedup, LogOutcomeFail, &failMsg)
		return 0, fmt.Errorf("clear tab: %w", err)
	}

	values := make([][]string, 0, len(kept)+1)
	values = append(values, header)
	values = append(values, kept...)

	if err := s.store.UpdateRange(ctx, spreadsheetID, fmt.Sprintf("%s!A1", tab), values); err != nil {
		failMsg := fmt.Sprintf("rewrite tab=%s: %v", tab, err)
		_ = s.logService.CreateLog(ctx, nil, LogActionLedgerDedup, LogOutcomeFail, &failMsg)
		return 0, fmt.Errorf("rewrite tab: %w", err)
	}

	successMsg := fmt.Sprintf("deduplicated tab=%s column=%s removed=%d", tab, sourceColumn, removed)
	_ = s.logService.CreateLog(ctx, nil, LogActionLedgerDedup, LogOutcomeSuccess, &successMsg)

	return removed, nil
}

// AppendSummary appends one row to the workflow log tab, writing the header
// first when the tab is still empty.
func (s *LedgerService) AppendSummary(ctx context.Context, spreadsheetID string, tab string, header []string, row []string) error {
	if s == nil {
		return errors.New("ledger service is nil")
	}
	if s.store == nil {
		return errors.New("ledger store is nil")
	}
	if len(header) == 0 {
		return errors.New("summary header is empty")
	}
	if len(row) == 0 {
		return errors.New("summary row is empty")
	}

	rows, err := s.readTab(ctx, spreadsheetID, tab)
	if err != nil {
		return err
	}

	values := [][]string{row}
	if len(rows) == 0 {
		values = [][]string{header, row}
	}

	if err := s.store.AppendRows(ctx, spreadsheetID, tab, values); err != nil {
		return fmt.Errorf("append summary row: %w", err)
	}

	return nil
}

func (s *LedgerService) readTab(ctx context.Context, spreadsheetID string, tab string) ([][]string, error) {
	if s.store == nil {
		return nil, errors.New("ledger store is nil")
	}
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is empty")
	}
	if tab == "" {
		return nil, errors.New("tab is empty")
	}

	rows, err := s.store.ReadRange(ctx, spreadsheetID, tab)
	if err != nil {
		if errors.Is(err, ErrRangeNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tab %s: %w", tab, err)
	}

	return rows, nil
}

func columnOrderWithSourceLast(table Table, sourceColumn string) ([]int, error) {
	sourceIndex := table.ColumnIndex(sourceColumn)
	if sourceIndex == -1 {
		return nil, fmt.Errorf("source column %q not in table", sourceColumn)
	}

	order := make([]int, 0, len(table.Columns))
	for i := range table.Columns {
		if i == sourceIndex {
			continue
		}
		order = append(order, i)
	}
	order = append(order, sourceIndex)

	return order, nil
}

func projectRow(row []string, order []int) []string {
	projected := make([]string, 0, len(order))
	for _, index := range order {
		if index < len(row) {
			projected = append(projected, row[index])
			continue
		}
		projected = append(projected, "")
	}
	return projected
}
