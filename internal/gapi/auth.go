package gapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	sheets "google.golang.org/api/sheets/v4"
)

// NewHTTPClient builds an authorized client from the OAuth client secret and
// a previously issued token file. The service runs headless, so a missing or
// unreadable token is a fatal setup error rather than a prompt.
func NewHTTPClient(ctx context.Context, credentialsPath string, tokenPath string) (*http.Client, error) {
	if credentialsPath == "" {
		return nil, errors.New("credentials path is empty")
	}
	if tokenPath == "" {
		return nil, errors.New("token path is empty")
	}

	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	conf, err := google.ConfigFromJSON(credentials,
		gmail.GmailReadonlyScope,
		drive.DriveScope,
		sheets.SpreadsheetsScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	tokenBytes, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	return conf.Client(ctx, &token), nil
}
