package models

import "time"

// RunSummary is the durable record of one complete ingestion run. The same
// counts are appended as a row to the workflow log sheet; this copy backs
// the /summaries endpoint.
type RunSummary struct {
	ID                string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StartedAt         time.Time `gorm:"not null" json:"started_at"`
	FinishedAt        time.Time `gorm:"not null" json:"finished_at"`
	EmailsChecked     int       `gorm:"type:int;not null" json:"emails_checked"`
	AttachmentsSaved  int       `gorm:"type:int;not null" json:"attachments_saved"`
	TotalFilesFound   int       `gorm:"type:int;not null" json:"total_files_found"`
	NewFilesFound     int       `gorm:"type:int;not null" json:"new_files_found"`
	FilesProcessed    int       `gorm:"type:int;not null" json:"files_processed"`
	FilesFailed       int       `gorm:"type:int;not null" json:"files_failed"`
	RowsAppended      int       `gorm:"type:int;not null" json:"rows_appended"`
	DuplicatesRemoved int       `gorm:"type:int;not null" json:"duplicates_removed"`
	HarvestSuccess    bool      `gorm:"not null" json:"harvest_success"`
	IngestSuccess     bool      `gorm:"not null" json:"ingest_success"`
	OverallSuccess    bool      `gorm:"not null" json:"overall_success"`
}
