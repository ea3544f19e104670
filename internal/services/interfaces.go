package services

import (
	"context"
	"time"

	"grnsync/internal/models"
)

type Mailbox interface {
	Search(ctx context.Context, query string, maxResults int64) ([]MessageRef, error)
	GetMessage(ctx context.Context, id string) (MessagePart, error)
	GetAttachment(ctx context.Context, messageID string, attachmentID string) ([]byte, error)
	GetHeaders(ctx context.Context, id string) (MessageHeaders, error)
}

type FileStore interface {
	ListFolder(ctx context.Context, folderID string, modifiedAfter time.Time, maxResults int64) ([]StoredFile, error)
	FindOrCreateFolder(ctx context.Context, name string, parentID string) (string, error)
	FileExists(ctx context.Context, name string, folderID string) (bool, error)
	Upload(ctx context.Context, name string, parentID string, data []byte, mimeType string) (string, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type LedgerStore interface {
	ReadRange(ctx context.Context, spreadsheetID string, readRange string) ([][]string, error)
	AppendRows(ctx context.Context, spreadsheetID string, writeRange string, rows [][]string) error
	UpdateRange(ctx context.Context, spreadsheetID string, writeRange string, rows [][]string) error
	ClearRange(ctx context.Context, spreadsheetID string, clearRange string) error
}

type LogWriter interface {
	CreateLog(ctx context.Context, runID *string, action string, outcome string, message *string) error
}

type AttachmentHarvester interface {
	Harvest(ctx context.Context, runID *string) (HarvestStats, error)
}

type SpreadsheetParser interface {
	Parse(ctx context.Context, data []byte, headerRow int) (Table, error)
}

type TableCleaner interface {
	Clean(table Table) Table
}

type LedgerAccessor interface {
	ExistingSources(ctx context.Context, spreadsheetID string, tab string, sourceColumn string) (map[string]struct{}, error)
	HasData(ctx context.Context, spreadsheetID string, tab string) (bool, error)
	Append(ctx context.Context, spreadsheetID string, tab string, table Table, sourceColumn string, includeHeader bool) (int, error)
	DeduplicateAll(ctx context.Context, spreadsheetID string, tab string, sourceColumn string) (int, error)
	AppendSummary(ctx context.Context, spreadsheetID string, tab string, header []string, row []string) error
}

type SummaryStorer interface {
	StoreRunSummary(ctx context.Context, summary models.RunSummary) error
}
