package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}

	return db
}

type loggedEntry struct {
	action  string
	outcome string
	message *string
}

type stubLogWriter struct {
	entries []loggedEntry
}

func (s *stubLogWriter) CreateLog(ctx context.Context, runID *string, action string, outcome string, message *string) error {
	var copied *string
	if message != nil {
		value := *message
		copied = &value
	}

	s.entries = append(s.entries, loggedEntry{
		action:  action,
		outcome: outcome,
		message: copied,
	})
	return nil
}

func (s *stubLogWriter) failures() int {
	count := 0
	for _, entry := range s.entries {
		if entry.outcome == LogOutcomeFail {
			count++
		}
	}
	return count
}

// fakeLedgerStore keeps tabs in memory. A tab that was never written reads
// back as range-not-found, matching the remote backend's behavior.
type fakeLedgerStore struct {
	tabs        map[string][][]string
	readErr     error
	appendErr   error
	clearCalls  int
	updateCalls int
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{tabs: make(map[string][][]string)}
}

func (s *fakeLedgerStore) key(spreadsheetID string, rng string) string {
	tab := rng
	if i := strings.Index(rng, "!"); i != -1 {
		tab = rng[:i]
	}
	return spreadsheetID + "/" + tab
}

func (s *fakeLedgerStore) ReadRange(ctx context.Context, spreadsheetID string, readRange string) ([][]string, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	rows, ok := s.tabs[s.key(spreadsheetID, readRange)]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", readRange, ErrRangeNotFound)
	}
	return rows, nil
}

func (s *fakeLedgerStore) AppendRows(ctx context.Context, spreadsheetID string, writeRange string, rows [][]string) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	key := s.key(spreadsheetID, writeRange)
	s.tabs[key] = append(s.tabs[key], rows...)
	return nil
}

func (s *fakeLedgerStore) UpdateRange(ctx context.Context, spreadsheetID string, writeRange string, rows [][]string) error {
	s.updateCalls++
	s.tabs[s.key(spreadsheetID, writeRange)] = rows
	return nil
}

func (s *fakeLedgerStore) ClearRange(ctx context.Context, spreadsheetID string, clearRange string) error {
	s.clearCalls++
	s.tabs[s.key(spreadsheetID, clearRange)] = [][]string{}
	return nil
}

// stubMailbox serves canned messages and records the search query.
type stubMailbox struct {
	refs        []MessageRef
	messages    map[string]MessagePart
	headers     map[string]MessageHeaders
	attachments map[string][]byte
	headerErrs  map[string]error
	searchErr   error
	query       string
}

func (m *stubMailbox) Search(ctx context.Context, query string, maxResults int64) ([]MessageRef, error) {
	m.query = query
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.refs, nil
}

func (m *stubMailbox) GetMessage(ctx context.Context, id string) (MessagePart, error) {
	part, ok := m.messages[id]
	if !ok {
		return MessagePart{}, fmt.Errorf("message %s not found", id)
	}
	return part, nil
}

func (m *stubMailbox) GetAttachment(ctx context.Context, messageID string, attachmentID string) ([]byte, error) {
	data, ok := m.attachments[messageID+"/"+attachmentID]
	if !ok {
		return nil, fmt.Errorf("attachment %s not found", attachmentID)
	}
	return data, nil
}

func (m *stubMailbox) GetHeaders(ctx context.Context, id string) (MessageHeaders, error) {
	if err, ok := m.headerErrs[id]; ok {
		return MessageHeaders{}, err
	}
	return m.headers[id], nil
}

// fakeFileStore keeps a folder tree and file contents in memory.
type fakeFileStore struct {
	folders       map[string]string
	files         map[string]map[string][]byte
	listFiles     []StoredFile
	listErr       error
	downloads     map[string][]byte
	downloadErrs  map[string]error
	uploadErr     error
	uploads       int
	folderCreates int
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{
		folders:   make(map[string]string),
		files:     make(map[string]map[string][]byte),
		downloads: make(map[string][]byte),
	}
}

func (s *fakeFileStore) ListFolder(ctx context.Context, folderID string, modifiedAfter time.Time, maxResults int64) ([]StoredFile, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listFiles, nil
}

func (s *fakeFileStore) FindOrCreateFolder(ctx context.Context, name string, parentID string) (string, error) {
	key := parentID + "/" + name
	if id, ok := s.folders[key]; ok {
		return id, nil
	}
	s.folderCreates++
	id := fmt.Sprintf("folder-%d", s.folderCreates)
	s.folders[key] = id
	return id, nil
}

func (s *fakeFileStore) FileExists(ctx context.Context, name string, folderID string) (bool, error) {
	_, ok := s.files[folderID][name]
	return ok, nil
}

func (s *fakeFileStore) Upload(ctx context.Context, name string, parentID string, data []byte, mimeType string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	if s.files[parentID] == nil {
		s.files[parentID] = make(map[string][]byte)
	}
	s.files[parentID][name] = data
	s.uploads++
	return fmt.Sprintf("file-%d", s.uploads), nil
}

func (s *fakeFileStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err, ok := s.downloadErrs[fileID]; ok {
		return nil, err
	}
	data, ok := s.downloads[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	return data, nil
}
