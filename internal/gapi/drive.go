package gapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"grnsync/internal/services"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveStore implements services.FileStore on the Drive API.
type DriveStore struct {
	svc *drive.Service
}

func NewDriveStore(ctx context.Context, client *http.Client) (*DriveStore, error) {
	if client == nil {
		return nil, errors.New("http client is nil")
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &DriveStore{svc: svc}, nil
}

// ListFolder returns the folder's files modified after the cutoff, most
// recently modified first. Name and MIME filtering stay with the caller.
func (s *DriveStore) ListFolder(ctx context.Context, folderID string, modifiedAfter time.Time, maxResults int64) ([]services.StoredFile, error) {
	if s == nil || s.svc == nil {
		return nil, errors.New("drive store is nil")
	}

	query := fmt.Sprintf("'%s' in parents and trashed = false and modifiedTime > '%s'",
		folderID, modifiedAfter.UTC().Format(time.RFC3339))

	resp, err := s.svc.Files.List().
		Q(query).
		OrderBy("modifiedTime desc").
		PageSize(maxResults).
		Fields("files(id, name, mimeType, modifiedTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list folder: %w", err)
	}

	files := make([]services.StoredFile, 0, len(resp.Files))
	for _, file := range resp.Files {
		modified, _ := time.Parse(time.RFC3339, file.ModifiedTime)
		files = append(files, services.StoredFile{
			ID:           file.Id,
			Name:         file.Name,
			MimeType:     file.MimeType,
			ModifiedTime: modified,
		})
	}

	return files, nil
}

// FindOrCreateFolder searches for a same-named folder under the parent
// before creating one, so repeated harvests never duplicate the layout.
func (s *DriveStore) FindOrCreateFolder(ctx context.Context, name string, parentID string) (string, error) {
	if s == nil || s.svc == nil {
		return "", errors.New("drive store is nil")
	}

	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		escapeQueryValue(name), folderMimeType, parentID)

	resp, err := s.svc.Files.List().Q(query).PageSize(1).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search folder: %w", err)
	}
	if len(resp.Files) > 0 {
		return resp.Files[0].Id, nil
	}

	folder, err := s.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	return folder.Id, nil
}

func (s *DriveStore) FileExists(ctx context.Context, name string, folderID string) (bool, error) {
	if s == nil || s.svc == nil {
		return false, errors.New("drive store is nil")
	}

	query := fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false",
		escapeQueryValue(name), folderID)

	resp, err := s.svc.Files.List().Q(query).PageSize(1).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("check file: %w", err)
	}

	return len(resp.Files) > 0, nil
}

func (s *DriveStore) Upload(ctx context.Context, name string, parentID string, data []byte, mimeType string) (string, error) {
	if s == nil || s.svc == nil {
		return "", errors.New("drive store is nil")
	}

	file, err := s.svc.Files.Create(&drive.File{
		Name:    name,
		Parents: []string{parentID},
	}).Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	return file.Id, nil
}

func (s *DriveStore) Download(ctx context.Context, fileID string) ([]byte, error) {
	if s == nil || s.svc == nil {
		return nil, errors.New("drive store is nil")
	}

	resp, err := s.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}

	data, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read file body: %w", readErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close file body: %w", closeErr)
	}

	return data, nil
}

func escapeQueryValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, "'", `\'`)
}
