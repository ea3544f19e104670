package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"grnsync/internal/config"
)

const (
	attachmentFolderName = "Excel_Files"
	maxFilenameLength    = 100
	truncatedStemLength  = 95
)

var spreadsheetExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".xlsm": true,
}

var spreadsheetMimeTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".xlsm": "application/vnd.ms-excel.sheet.macroEnabled.12",
}

type HarvestService struct {
	mailbox    Mailbox
	store      FileStore
	logService LogWriter
	cfg        config.MailConfig
	now        func() time.Time
}

func NewHarvestService(mailbox Mailbox, store FileStore, logService LogWriter, cfg config.MailConfig) (*HarvestService, error) {
	if mailbox == nil {
		return nil, errors.New("mailbox is nil")
	}
	if store == nil {
		return nil, errors.New("file store is nil")
	}
	if logService == nil {
		return nil, errors.New("log service is nil")
	}
	if cfg.DriveFolderID == "" {
		return nil, errors.New("drive folder id is empty")
	}

	return &HarvestService{
		mailbox:    mailbox,
		store:      store,
		logService: logService,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// Harvest searches the mailbox for qualifying messages and deposits their
// spreadsheet attachments into the file store. Already-deposited attachments
// are skipped; the message-id prefix on the destination name makes the
// existence check sufficient for idempotence. A failure on one message or
// attachment is logged and counted, never aborts the rest of the batch.
func (s *HarvestService) Harvest(ctx context.Context, runID *string) (HarvestStats, error) {
	if s == nil {
		return HarvestStats{}, errors.New("harvest service is nil")
	}
	if s.mailbox == nil {
		return HarvestStats{}, errors.New("mailbox is nil")
	}
	if s.store == nil {
		return HarvestStats{}, errors.New("file store is nil")
	}
	if s.logService == nil {
		return HarvestStats{}, errors.New("log service is nil")
	}

	after := s.now().AddDate(0, 0, -s.cfg.DaysBack)
	query := buildSearchQuery(s.cfg.Sender, s.cfg.SearchTerm, after)

	refs, err := s.mailbox.Search(ctx, query, s.cfg.MaxResults)
	if err != nil {
		failMsg := fmt.Sprintf("search query=%q: %v", query, err)
		_ = s.logService.CreateLog(ctx, runID, LogActionMailSearch, LogOutcomeFail, &failMsg)
		return HarvestStats{}, fmt.Errorf("search mailbox: %w", err)
	}

	searchMsg := fmt.Sprintf("search query=%q messages=%d", query, len(refs))
	_ = s.logService.CreateLog(ctx, runID, LogActionMailSearch, LogOutcomeSuccess, &searchMsg)

	stats := HarvestStats{EmailsChecked: len(refs)}
	folders := make(map[string]string)

	for _, ref := range refs {
		headers, err := s.mailbox.GetHeaders(ctx, ref.ID)
		if err != nil {
			stats.Failed++
			failMsg := fmt.Sprintf("get headers message=%s: %v", ref.ID, err)
			_ = s.logService.CreateLog(ctx, runID, LogActionHarvest, LogOutcomeFail, &failMsg)
			continue
		}

		root, err := s.mailbox.GetMessage(ctx, ref.ID)
		if err != nil {
			stats.Failed++
			failMsg := fmt.Sprintf("get message=%s subject=%q: %v", ref.ID, headers.Subject, err)
			_ = s.logService.CreateLog(ctx, runID, LogActionHarvest, LogOutcomeFail, &failMsg)
			continue
		}

		stats = stats.merge(s.harvestPart(ctx, ref.ID, root, headers.From, folders, runID))
	}

	resultMsg := fmt.Sprintf("harvest uploaded=%d skipped=%d filtered=%d failed=%d", stats.Uploaded, stats.Skipped, stats.Filtered, stats.Failed)
	_ = s.logService.CreateLog(ctx, runID, LogActionHarvest, LogOutcomeSuccess, &resultMsg)

	return stats, nil
}

// harvestPart walks one payload node. Branch nodes recurse into children;
// leaf nodes qualify as attachments only with both a filename and a body
// reference. Each call returns its own stats for the caller to merge.
func (s *HarvestService) harvestPart(ctx context.Context, messageID string, part MessagePart, sender string, folders map[string]string, runID *string) HarvestStats {
	if len(part.Parts) > 0 {
		var stats HarvestStats
		for _, child := range part.Parts {
			stats = stats.merge(s.harvestPart(ctx, messageID, child, sender, folders, runID))
		}
		return stats
	}

	if part.Filename == "" {
		return HarvestStats{}
	}
	if part.Body.AttachmentID == "" && len(part.Body.Data) == 0 {
		return HarvestStats{}
	}

	extension := strings.ToLower(filepath.Ext(part.Filename))
	if !spreadsheetExtensions[extension] {
		return HarvestStats{Filtered: 1}
	}

	folderID, err := s.destinationFolder(ctx, sender, folders)
	if err != nil {
		failMsg := fmt.Sprintf("destination folder sender=%q: %v", sender, err)
		_ = s.logService.CreateLog(ctx, runID, LogActionHarvest, LogOutcomeFail, &failMsg)
		return HarvestStats{Failed: 1}
	}

	name := messageID + "_" + sanitizeFilename(part.Filename)

	exists, err := s.store.FileExists(ctx, name, folderID)
	if err != nil {
		failMsg := fmt.Sprintf("check file=%q: %v", name, err)
		_ = s.logService.CreateLog(ctx, runID, LogActionHarvest, LogOutcomeFail, &failMsg)
		return HarvestStats{Failed: 1}
	}
	if exists {
		return HarvestStats{Skipped: 1}
	}

	data := part.Body.Data
	if len(data) == 0 {
		data, err = s.mailbox.GetAttachment(ctx, messageID, part.Body.AttachmentID)
		if err != nil {
			failMsg := fmt.Sprintf("fetch attachment message=%s file=%q: %v", messageID, part.Filename, err)
			_ = s.logService.CreateLog(ctx, runID, LogActionHarvest, LogOutcomeFail, &failMsg)
			return HarvestStats{Failed: 1}
		}
	}

	if _, err := s.store.Upload(ctx, name, folderID, data, spreadsheetMimeTypes[extension]); err != nil {
		failMsg := fmt.Sprintf("upload file=%q: %v", name, err)
		_ = s.logService.CreateLog(ctx, runID, LogActionHarvest, LogOutcomeFail, &failMsg)
		return HarvestStats{Failed: 1}
	}

	return HarvestStats{Uploaded: 1}
}

// destinationFolder resolves root/sender/keyword/Excel_Files, creating each
// level idempotently and caching the result per sender for the run.
func (s *HarvestService) destinationFolder(ctx context.Context, sender string, folders map[string]string) (string, error) {
	address := senderAddress(sender)
	if folderID, ok := folders[address]; ok {
		return folderID, nil
	}

	senderFolder, err := s.store.FindOrCreateFolder(ctx, sanitizeFilename(address), s.cfg.DriveFolderID)
	if err != nil {
		return "", fmt.Errorf("create sender folder: %w", err)
	}

	keyword := sanitizeFilename(s.cfg.SearchTerm)
	if keyword == "" {
		keyword = "attachments"
	}
	keywordFolder, err := s.store.FindOrCreateFolder(ctx, keyword, senderFolder)
	if err != nil {
		return "", fmt.Errorf("create keyword folder: %w", err)
	}

	leafFolder, err := s.store.FindOrCreateFolder(ctx, attachmentFolderName, keywordFolder)
	if err != nil {
		return "", fmt.Errorf("create attachment folder: %w", err)
	}

	folders[address] = leafFolder
	return leafFolder, nil
}

// buildSearchQuery combines the has-attachment predicate, optional sender
// and keyword filters and the lookback date into one mailbox query. A
// comma-delimited keyword string becomes OR-joined quoted terms.
func buildSearchQuery(sender string, searchTerm string, after time.Time) string {
	parts := []string{"has:attachment"}

	if sender != "" {
		parts = append(parts, fmt.Sprintf("from:%q", sender))
	}

	if searchTerm != "" {
		if strings.Contains(searchTerm, ",") {
			keywords := make([]string, 0)
			for _, keyword := range strings.Split(searchTerm, ",") {
				keyword = strings.TrimSpace(keyword)
				if keyword == "" {
					continue
				}
				keywords = append(keywords, fmt.Sprintf("%q", keyword))
			}
			if len(keywords) > 0 {
				parts = append(parts, "("+strings.Join(keywords, " OR ")+")")
			}
		} else {
			parts = append(parts, fmt.Sprintf("%q", searchTerm))
		}
	}

	parts = append(parts, "after:"+after.Format("2006/01/02"))

	return strings.Join(parts, " ")
}

// senderAddress extracts the bare address from a "Name <addr>" header value.
func senderAddress(from string) string {
	start := strings.LastIndex(from, "<")
	end := strings.LastIndex(from, ">")
	if start != -1 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return strings.TrimSpace(from)
}

// sanitizeFilename replaces characters illegal on common filesystems and
// bounds the result to 100 characters, preserving the extension when one
// exists.
func sanitizeFilename(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)

	if len(sanitized) <= maxFilenameLength {
		return sanitized
	}

	extension := filepath.Ext(sanitized)
	if extension == "" || extension == sanitized {
		return sanitized[:maxFilenameLength]
	}

	stem := strings.TrimSuffix(sanitized, extension)
	if len(stem) > truncatedStemLength {
		stem = stem[:truncatedStemLength]
	}

	return stem + extension
}
