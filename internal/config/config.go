package config

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	DefaultSourceFileColumn = "source_file_name"
	defaultDaysBack         = 7
	defaultMaxResults       = 1000
)

type Config struct {
	DBDSN           string        `json:"db_dsn"`
	CredentialsPath string        `json:"credentials_path"`
	TokenPath       string        `json:"token_path"`
	Mail            MailConfig    `json:"mail"`
	Ingest          IngestConfig  `json:"ingest"`
	Summary         SummaryConfig `json:"summary"`
}

// MailConfig bounds the mailbox search and names the file-store folder the
// harvester deposits attachments under.
type MailConfig struct {
	Sender        string `json:"sender"`
	SearchTerm    string `json:"search_term"`
	DaysBack      int    `json:"days_back"`
	MaxResults    int64  `json:"max_results"`
	DriveFolderID string `json:"drive_folder_id"`
}

// IngestConfig identifies the source folder to discover spreadsheet files in
// and the ledger sheet rows are appended to.
type IngestConfig struct {
	SourceFolderID   string `json:"source_folder_id"`
	SpreadsheetID    string `json:"spreadsheet_id"`
	SheetName        string `json:"sheet_name"`
	HeaderRow        int    `json:"header_row"`
	DaysBack         int    `json:"days_back"`
	MaxResults       int64  `json:"max_results"`
	NameContains     string `json:"name_contains"`
	SourceFileColumn string `json:"source_file_column"`
	DedupAfterRun    bool   `json:"dedup_after_run"`
}

// SummaryConfig names the sheet one summary row is appended to per run.
type SummaryConfig struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	SheetName     string `json:"sheet_name"`
}

func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, fmt.Errorf("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.DBDSN == "" {
		return Config{}, fmt.Errorf("db_dsn is required")
	}
	if cfg.CredentialsPath == "" {
		return Config{}, fmt.Errorf("credentials_path is required")
	}
	if cfg.TokenPath == "" {
		return Config{}, fmt.Errorf("token_path is required")
	}
	if cfg.Mail.DriveFolderID == "" {
		return Config{}, fmt.Errorf("mail.drive_folder_id is required")
	}
	if cfg.Ingest.SourceFolderID == "" {
		return Config{}, fmt.Errorf("ingest.source_folder_id is required")
	}
	if cfg.Ingest.SpreadsheetID == "" {
		return Config{}, fmt.Errorf("ingest.spreadsheet_id is required")
	}
	if cfg.Ingest.SheetName == "" {
		return Config{}, fmt.Errorf("ingest.sheet_name is required")
	}
	if cfg.Summary.SpreadsheetID == "" {
		return Config{}, fmt.Errorf("summary.spreadsheet_id is required")
	}
	if cfg.Summary.SheetName == "" {
		return Config{}, fmt.Errorf("summary.sheet_name is required")
	}

	if cfg.Mail.DaysBack <= 0 {
		cfg.Mail.DaysBack = defaultDaysBack
	}
	if cfg.Mail.MaxResults <= 0 {
		cfg.Mail.MaxResults = defaultMaxResults
	}
	if cfg.Ingest.DaysBack <= 0 {
		cfg.Ingest.DaysBack = defaultDaysBack
	}
	if cfg.Ingest.MaxResults <= 0 {
		cfg.Ingest.MaxResults = defaultMaxResults
	}
	if cfg.Ingest.SourceFileColumn == "" {
		cfg.Ingest.SourceFileColumn = DefaultSourceFileColumn
	}

	return cfg, nil
}
