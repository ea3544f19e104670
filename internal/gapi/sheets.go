package gapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"grnsync/internal/services"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"
)

// SheetsLedger implements services.LedgerStore on the Sheets API.
type SheetsLedger struct {
	svc *sheets.Service
}

func NewSheetsLedger(ctx context.Context, client *http.Client) (*SheetsLedger, error) {
	if client == nil {
		return nil, errors.New("http client is nil")
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsLedger{svc: svc}, nil
}

func (s *SheetsLedger) ReadRange(ctx context.Context, spreadsheetID string, readRange string) ([][]string, error) {
	if s == nil || s.svc == nil {
		return nil, errors.New("sheets ledger is nil")
	}

	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		if isRangeNotFound(err) {
			return nil, fmt.Errorf("read %s: %w", readRange, services.ErrRangeNotFound)
		}
		return nil, fmt.Errorf("read range: %w", err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, value := range resp.Values {
		row := make([]string, 0, len(value))
		for _, cell := range value {
			row = append(row, fmt.Sprint(cell))
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (s *SheetsLedger) AppendRows(ctx context.Context, spreadsheetID string, writeRange string, rows [][]string) error {
	if s == nil || s.svc == nil {
		return errors.New("sheets ledger is nil")
	}

	_, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, writeRange, valueRange(rows)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append rows: %w", err)
	}

	return nil
}

func (s *SheetsLedger) UpdateRange(ctx context.Context, spreadsheetID string, writeRange string, rows [][]string) error {
	if s == nil || s.svc == nil {
		return errors.New("sheets ledger is nil")
	}

	_, err := s.svc.Spreadsheets.Values.Update(spreadsheetID, writeRange, valueRange(rows)).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update range: %w", err)
	}

	return nil
}

func (s *SheetsLedger) ClearRange(ctx context.Context, spreadsheetID string, clearRange string) error {
	if s == nil || s.svc == nil {
		return errors.New("sheets ledger is nil")
	}

	_, err := s.svc.Spreadsheets.Values.Clear(spreadsheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear range: %w", err)
	}

	return nil
}

func valueRange(rows [][]string) *sheets.ValueRange {
	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		value := make([]interface{}, 0, len(row))
		for _, cell := range row {
			value = append(value, cell)
		}
		values = append(values, value)
	}

	return &sheets.ValueRange{Values: values}
}

// isRangeNotFound matches the API's response to a read against a tab that
// does not exist yet.
func isRangeNotFound(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")
}
