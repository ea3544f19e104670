package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"grnsync/internal/config"
)

func testMailConfig() config.MailConfig {
	return config.MailConfig{
		Sender:        "reports@example.com",
		SearchTerm:    "GRN",
		DaysBack:      7,
		MaxResults:    100,
		DriveFolderID: "root-folder",
	}
}

func newTestHarvestService(t *testing.T, mailbox *stubMailbox, store *fakeFileStore) (*HarvestService, *stubLogWriter) {
	t.Helper()

	logWriter := &stubLogWriter{}
	service, err := NewHarvestService(mailbox, store, logWriter, testMailConfig())
	if err != nil {
		t.Fatalf("NewHarvestService: %v", err)
	}
	service.now = func() time.Time {
		return time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	}

	return service, logWriter
}

func TestHarvestUploadsSpreadsheetAttachments(t *testing.T) {
	mailbox := &stubMailbox{
		refs: []MessageRef{{ID: "msg-1"}},
		headers: map[string]MessageHeaders{
			"msg-1": {From: "Reports <reports@example.com>", Subject: "GRN report"},
		},
		messages: map[string]MessagePart{
			"msg-1": {
				MimeType: "multipart/mixed",
				Parts: []MessagePart{
					{MimeType: "text/plain"},
					{Filename: "report.xlsx", Body: PartBody{AttachmentID: "att-1"}},
					{Filename: "notes.pdf", Body: PartBody{AttachmentID: "att-2"}},
				},
			},
		},
		attachments: map[string][]byte{
			"msg-1/att-1": []byte("workbook-bytes"),
		},
	}
	store := newFakeFileStore()
	service, _ := newTestHarvestService(t, mailbox, store)

	stats, err := service.Harvest(context.Background(), nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}

	if stats.EmailsChecked != 1 || stats.Uploaded != 1 || stats.Filtered != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if store.folderCreates != 3 {
		t.Fatalf("folder creates = %d, want sender/keyword/leaf chain", store.folderCreates)
	}

	leaf := store.folders["folder-2/Excel_Files"]
	if _, ok := store.files[leaf]["msg-1_report.xlsx"]; !ok {
		t.Fatalf("uploaded files = %v, want msg-1_report.xlsx under leaf folder", store.files)
	}
}

func TestHarvestSecondRunSkipsExistingFiles(t *testing.T) {
	mailbox := &stubMailbox{
		refs: []MessageRef{{ID: "msg-1"}},
		headers: map[string]MessageHeaders{
			"msg-1": {From: "reports@example.com"},
		},
		messages: map[string]MessagePart{
			"msg-1": {Filename: "report.xlsx", Body: PartBody{Data: []byte("inline")}},
		},
	}
	store := newFakeFileStore()
	service, _ := newTestHarvestService(t, mailbox, store)

	first, err := service.Harvest(context.Background(), nil)
	if err != nil {
		t.Fatalf("first Harvest: %v", err)
	}
	if first.Uploaded != 1 {
		t.Fatalf("first run uploaded = %d, want 1", first.Uploaded)
	}

	second, err := service.Harvest(context.Background(), nil)
	if err != nil {
		t.Fatalf("second Harvest: %v", err)
	}
	if second.Uploaded != 0 || second.Skipped != 1 {
		t.Fatalf("second run stats = %+v, want skip of existing file", second)
	}
	if store.uploads != 1 {
		t.Fatalf("uploads = %d, want 1 across both runs", store.uploads)
	}
}

func TestHarvestUsesInlineDataWithoutAttachmentFetch(t *testing.T) {
	mailbox := &stubMailbox{
		refs: []MessageRef{{ID: "msg-1"}},
		headers: map[string]MessageHeaders{
			"msg-1": {From: "reports@example.com"},
		},
		messages: map[string]MessagePart{
			"msg-1": {Filename: "inline.xls", Body: PartBody{Data: []byte("inline-bytes")}},
		},
	}
	store := newFakeFileStore()
	service, _ := newTestHarvestService(t, mailbox, store)

	stats, err := service.Harvest(context.Background(), nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if stats.Uploaded != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	leaf := store.folders["folder-2/Excel_Files"]
	if string(store.files[leaf]["msg-1_inline.xls"]) != "inline-bytes" {
		t.Fatalf("stored bytes = %q", store.files[leaf]["msg-1_inline.xls"])
	}
}

func TestHarvestHeaderErrorCountsFailureAndContinues(t *testing.T) {
	mailbox := &stubMailbox{
		refs: []MessageRef{{ID: "msg-bad"}, {ID: "msg-good"}},
		headers: map[string]MessageHeaders{
			"msg-good": {From: "reports@example.com"},
		},
		headerErrs: map[string]error{
			"msg-bad": errors.New("metadata unavailable"),
		},
		messages: map[string]MessagePart{
			"msg-good": {Filename: "ok.xlsx", Body: PartBody{Data: []byte("data")}},
		},
	}
	store := newFakeFileStore()
	service, logWriter := newTestHarvestService(t, mailbox, store)

	stats, err := service.Harvest(context.Background(), nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}

	if stats.Failed != 1 || stats.Uploaded != 1 {
		t.Fatalf("stats = %+v, want one failure and one upload", stats)
	}
	if logWriter.failures() != 1 {
		t.Fatalf("fail log entries = %d, want 1", logWriter.failures())
	}
}

func TestHarvestSearchErrorAborts(t *testing.T) {
	mailbox := &stubMailbox{searchErr: errors.New("quota exceeded")}
	service, logWriter := newTestHarvestService(t, mailbox, newFakeFileStore())

	if _, err := service.Harvest(context.Background(), nil); err == nil {
		t.Fatalf("Harvest with search error: expected error")
	}
	if logWriter.failures() != 1 {
		t.Fatalf("fail log entries = %d, want 1", logWriter.failures())
	}
}

func TestHarvestNestedPartsAreWalked(t *testing.T) {
	mailbox := &stubMailbox{
		refs: []MessageRef{{ID: "msg-1"}},
		headers: map[string]MessageHeaders{
			"msg-1": {From: "reports@example.com"},
		},
		messages: map[string]MessagePart{
			"msg-1": {
				MimeType: "multipart/mixed",
				Parts: []MessagePart{
					{
						MimeType: "multipart/alternative",
						Parts: []MessagePart{
							{MimeType: "text/plain"},
							{Filename: "deep.xlsm", Body: PartBody{AttachmentID: "att-1"}},
						},
					},
				},
			},
		},
		attachments: map[string][]byte{
			"msg-1/att-1": []byte("nested"),
		},
	}
	store := newFakeFileStore()
	service, _ := newTestHarvestService(t, mailbox, store)

	stats, err := service.Harvest(context.Background(), nil)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if stats.Uploaded != 1 {
		t.Fatalf("stats = %+v, want nested attachment uploaded", stats)
	}
}

func TestHarvestQueryIncludesSenderKeywordAndDate(t *testing.T) {
	mailbox := &stubMailbox{}
	service, _ := newTestHarvestService(t, mailbox, newFakeFileStore())

	if _, err := service.Harvest(context.Background(), nil); err != nil {
		t.Fatalf("Harvest: %v", err)
	}

	want := `has:attachment from:"reports@example.com" "GRN" after:2026/01/03`
	if mailbox.query != want {
		t.Fatalf("query = %q, want %q", mailbox.query, want)
	}
}

func TestBuildSearchQueryCommaKeywords(t *testing.T) {
	after := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	got := buildSearchQuery("", "grn, hot , ", after)
	want := `has:attachment ("grn" OR "hot") after:2026/03/05`
	if got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}

	got = buildSearchQuery("a@b.c", "", after)
	want = `has:attachment from:"a@b.c" after:2026/03/05`
	if got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestSenderAddress(t *testing.T) {
	cases := map[string]string{
		"Reports <reports@example.com>": "reports@example.com",
		"reports@example.com":           "reports@example.com",
		"  spaced@example.com  ":        "spaced@example.com",
	}
	for input, want := range cases {
		if got := senderAddress(input); got != want {
			t.Fatalf("senderAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename(`a<b>:c"d/e\f|g?h*i.xlsx`); got != "a_b__c_d_e_f_g_h_i.xlsx" {
		t.Fatalf("sanitized = %q", got)
	}

	long := strings.Repeat("x", 120) + ".xlsx"
	got := sanitizeFilename(long)
	if len(got) != truncatedStemLength+len(".xlsx") {
		t.Fatalf("truncated length = %d", len(got))
	}
	if !strings.HasSuffix(got, ".xlsx") {
		t.Fatalf("truncation lost extension: %q", got)
	}

	noExt := strings.Repeat("y", 150)
	if got := sanitizeFilename(noExt); len(got) != maxFilenameLength {
		t.Fatalf("extensionless truncation length = %d", len(got))
	}
}
