package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"grnsync/internal/config"
	"grnsync/internal/models"
	"grnsync/pkg/metrics"

	"github.com/google/uuid"
)

var summaryHeader = []string{
	"workflow_start",
	"workflow_end",
	"emails_checked",
	"attachments_saved",
	"total_files_found",
	"new_files_found",
	"files_processed",
	"files_failed",
	"rows_appended",
	"duplicates_removed",
	"harvest_success",
	"ingest_success",
	"overall_success",
}

// PipelineService drives one complete run: harvest attachments, discover
// source files, diff against the ledger, append new rows, optionally
// deduplicate, and record a summary. Harvest and ingest are independent
// stages; one failing does not block the other, and overall success is
// their conjunction.
//
// The dedup key is the bare file name: a re-exported report uploaded under
// an already-ingested name is silently skipped even if its contents differ.
// That limitation is inherited and accepted.
type PipelineService struct {
	harvester  AttachmentHarvester
	store      FileStore
	parser     SpreadsheetParser
	cleaner    TableCleaner
	ledger     LedgerAccessor
	summaries  SummaryStorer
	logService LogWriter
	ingestCfg  config.IngestConfig
	summaryCfg config.SummaryConfig
	now        func() time.Time

	// Appends and the clear-then-rewrite dedup must not interleave, so a
	// run holds the single-writer lock for its full duration.
	mu sync.Mutex
}

func NewPipelineService(
	harvester AttachmentHarvester,
	store FileStore,
	parser SpreadsheetParser,
	cleaner TableCleaner,
	ledger LedgerAccessor,
	summaries SummaryStorer,
	logService LogWriter,
	ingestCfg config.IngestConfig,
	summaryCfg config.SummaryConfig,
) (*PipelineService, error) {
	if harvester == nil {
		return nil, errors.New("harvest service is nil")
	}
	if store == nil {
		return nil, errors.New("file store is nil")
	}
	if parser == nil {
		return nil, errors.New("xlsx service is nil")
	}
	if cleaner == nil {
		return nil, errors.New("clean service is nil")
	}
	if ledger == nil {
		return nil, errors.New("ledger service is nil")
	}
	if summaries == nil {
		return nil, errors.New("summary service is nil")
	}
	if logService == nil {
		return nil, errors.New("log service is nil")
	}
	if ingestCfg.SourceFileColumn == "" {
		return nil, errors.New("source file column is empty")
	}

	return &PipelineService{
		harvester:  harvester,
		store:      store,
		parser:     parser,
		cleaner:    cleaner,
		ledger:     ledger,
		summaries:  summaries,
		logService: logService,
		ingestCfg:  ingestCfg,
		summaryCfg: summaryCfg,
		now:        time.Now,
	}, nil
}

func (s *PipelineService) Run(ctx context.Context) (models.RunSummary, error) {
	if s == nil {
		return models.RunSummary{}, errors.New("pipeline service is nil")
	}
	if s.harvester == nil || s.store == nil || s.parser == nil || s.cleaner == nil || s.ledger == nil || s.summaries == nil || s.logService == nil {
		return models.RunSummary{}, errors.New("pipeline service is not fully wired")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	runID := uuid.NewString()
	summary := models.RunSummary{StartedAt: s.now().UTC()}

	harvestStats, harvestErr := s.harvester.Harvest(ctx, &runID)
	summary.HarvestSuccess = harvestErr == nil
	summary.EmailsChecked = harvestStats.EmailsChecked
	summary.AttachmentsSaved = harvestStats.Uploaded
	metrics.AddAttachments("uploaded", harvestStats.Uploaded)
	metrics.AddAttachments("skipped", harvestStats.Skipped)
	metrics.AddAttachments("filtered", harvestStats.Filtered)
	metrics.AddAttachments("failed", harvestStats.Failed)

	summary.IngestSuccess = s.runIngest(ctx, &runID, &summary)

	summary.FinishedAt = s.now().UTC()
	summary.OverallSuccess = summary.HarvestSuccess && summary.IngestSuccess

	s.writeSummary(ctx, &runID, summary)
	metrics.ObserveRun(summary.OverallSuccess, summary.FinishedAt.Sub(summary.StartedAt))

	return summary, nil
}

// runIngest discovers source files, diffs them against the ledger's
// already-ingested set and appends each new file's rows. It returns the
// stage success flag: per-file failures are counted, only stage-level
// errors flip it.
func (s *PipelineService) runIngest(ctx context.Context, runID *string, summary *models.RunSummary) bool {
	files, err := s.discoverSourceFiles(ctx)
	if err != nil {
		failMsg := fmt.Sprintf("discover source files: %v", err)
		_ = s.logService.CreateLog(ctx, runID, LogActionDiscovery, LogOutcomeFail, &failMsg)
		return false
	}
	summary.TotalFilesFound = len(files)

	foundMsg := fmt.Sprintf("discovered files=%d folder=%s", len(files), s.ingestCfg.SourceFolderID)
	_ = s.logService.CreateLog(ctx, runID, LogActionDiscovery, LogOutcomeSuccess, &foundMsg)

	existing, err := s.ledger.ExistingSources(ctx, s.ingestCfg.SpreadsheetID, s.ingestCfg.SheetName, s.ingestCfg.SourceFileColumn)
	if err != nil {
		failMsg := fmt.Sprintf("read existing sources: %v", err)
		_ = s.logService.CreateLog(ctx, runID, LogActionLedgerDiff, LogOutcomeFail, &failMsg)
		return false
	}

	newFiles := make([]StoredFile, 0, len(files))
	for _, file := range files {
		if _, ok := existing[file.Name]; ok {
			continue
		}
		newFiles = append(newFiles, file)
	}
	summary.NewFilesFound = len(newFiles)
	metrics.AddFilesIngested("skipped", len(files)-len(newFiles))

	diffMsg := fmt.Sprintf("new files=%d of %d (existing sources=%d)", len(newFiles), len(files), len(existing))
	_ = s.logService.CreateLog(ctx, runID, LogActionLedgerDiff, LogOutcomeSuccess, &diffMsg)

	if len(newFiles) == 0 {
		return true
	}

	hadData, err := s.ledger.HasData(ctx, s.ingestCfg.SpreadsheetID, s.ingestCfg.SheetName)
	if err != nil {
		failMsg := fmt.Sprintf("check ledger data: %v", err)
		_ = s.logService.CreateLog(ctx, runID, LogActionLedgerDiff, LogOutcomeFail, &failMsg)
		return false
	}

	// The header is written at most once per run: by the first appended
	// file, and only when the tab held no data before the run started.
	firstFile := true
	for _, file := range newFiles {
		rows, ok := s.ingestFile(ctx, runID, file, firstFile && !hadData)
		if !ok {
			summary.FilesFailed++
			metrics.AddFilesIngested("failed", 1)
			continue
		}
		summary.FilesProcessed++
		summary.RowsAppended += rows
		metrics.AddFilesIngested("processed", 1)
		metrics.AddRowsAppended(rows)
		firstFile = false
	}

	if s.ingestCfg.DedupAfterRun && summary.FilesProcessed > 0 {
		removed, err := s.ledger.DeduplicateAll(ctx, s.ingestCfg.SpreadsheetID, s.ingestCfg.SheetName, s.ingestCfg.SourceFileColumn)
		if err != nil {
			failMsg := fmt.Sprintf("deduplicate ledger: %v", err)
			_ = s.logService.CreateLog(ctx, runID, LogActionLedgerDedup, LogOutcomeFail, &failMsg)
		} else {
			summary.DuplicatesRemoved = removed
		}
	}

	return true
}

func (s *PipelineService) ingestFile(ctx context.Context, runID *string, file StoredFile, includeHeader bool) (int, bool) {
	data, err := s.store.Download(ctx, file.ID)
	if err != nil {
		failMsg := fmt.Sprintf("download file=%q: %v", file.Name, err)
		_ = s.logService.CreateLog(ctx, runID, LogActionParse, LogOutcomeFail, &failMsg)
		return 0, false
	}

	table, err := s.parser.Parse(ctx, data, s.ingestCfg.HeaderRow)
	if err != nil {
		failMsg := fmt.Sprintf("parse file=%q: %v", file.Name, err)
		_ = s.logService.CreateLog(ctx, runID, LogActionParse, LogOutcomeFail, &failMsg)
		return 0, false
	}

	table = s.cleaner.Clean(table)
	if table.Empty() {
		failMsg := fmt.Sprintf("no data extracted from file=%q", file.Name)
		_ = s.logService.CreateLog(ctx, runID, LogActionParse, LogOutcomeFail, &failMsg)
		return 0, false
	}

	table = table.WithConstantColumn(s.ingestCfg.SourceFileColumn, file.Name)

	rows, err := s.ledger.Append(ctx, s.ingestCfg.SpreadsheetID, s.ingestCfg.SheetName, table, s.ingestCfg.SourceFileColumn, includeHeader)
	if err != nil {
		failMsg := fmt.Sprintf("append file=%q: %v", file.Name, err)
		_ = s.logService.CreateLog(ctx, runID, LogActionLedgerAppend, LogOutcomeFail, &failMsg)
		return 0, false
	}

	return rows, true
}

// discoverSourceFiles lists the source folder within the lookback window and
// keeps spreadsheet-typed files whose name contains the match substring.
func (s *PipelineService) discoverSourceFiles(ctx context.Context) ([]StoredFile, error) {
	cutoff := s.now().AddDate(0, 0, -s.ingestCfg.DaysBack)

	files, err := s.store.ListFolder(ctx, s.ingestCfg.SourceFolderID, cutoff, s.ingestCfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("list folder: %w", err)
	}

	matched := make([]StoredFile, 0, len(files))
	for _, file := range files {
		if !isSpreadsheetMime(file.MimeType) {
			continue
		}
		if !strings.Contains(file.Name, s.ingestCfg.NameContains) {
			continue
		}
		matched = append(matched, file)
	}

	return matched, nil
}

func isSpreadsheetMime(mimeType string) bool {
	for _, known := range spreadsheetMimeTypes {
		if mimeType == known {
			return true
		}
	}
	return false
}

func (s *PipelineService) writeSummary(ctx context.Context, runID *string, summary models.RunSummary) {
	row := []string{
		summary.StartedAt.Format(time.RFC3339),
		summary.FinishedAt.Format(time.RFC3339),
		strconv.Itoa(summary.EmailsChecked),
		strconv.Itoa(summary.AttachmentsSaved),
		strconv.Itoa(summary.TotalFilesFound),
		strconv.Itoa(summary.NewFilesFound),
		strconv.Itoa(summary.FilesProcessed),
		strconv.Itoa(summary.FilesFailed),
		strconv.Itoa(summary.RowsAppended),
		strconv.Itoa(summary.DuplicatesRemoved),
		strconv.FormatBool(summary.HarvestSuccess),
		strconv.FormatBool(summary.IngestSuccess),
		strconv.FormatBool(summary.OverallSuccess),
	}

	if err := s.ledger.AppendSummary(ctx, s.summaryCfg.SpreadsheetID, s.summaryCfg.SheetName, summaryHeader, row); err != nil {
		failMsg := fmt.Sprintf("append summary row: %v", err)
		_ = s.logService.CreateLog(ctx, runID, LogActionRunSummary, LogOutcomeFail, &failMsg)
	}

	if err := s.summaries.StoreRunSummary(ctx, summary); err != nil {
		failMsg := fmt.Sprintf("store run summary: %v", err)
		_ = s.logService.CreateLog(ctx, runID, LogActionRunSummary, LogOutcomeFail, &failMsg)
	}

	resultMsg := fmt.Sprintf("run finished success=%t files_processed=%d rows_appended=%d", summary.OverallSuccess, summary.FilesProcessed, summary.RowsAppended)
	_ = s.logService.CreateLog(ctx, runID, LogActionRunSummary, LogOutcomeSuccess, &resultMsg)
}
