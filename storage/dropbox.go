package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
)

const (
	DropboxAPIURL     = "https://api.dropboxapi.com/2"
	DropboxContentURL = "https://content.dropboxapi.com/2"

	maxErrorBody = 4096
)

// Dropbox uploads the brief into the root of an app folder
type Dropbox struct {
	token  string
	client *http.Client
	logger *slog.Logger

	// APIURL and ContentURL are overridable for tests
	APIURL     string
	ContentURL string
}

func NewDropbox(token string, client *http.Client, logger *slog.Logger) *Dropbox {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dropbox{
		token:      token,
		client:     client,
		logger:     logger,
		APIURL:     DropboxAPIURL,
		ContentURL: DropboxContentURL,
	}
}

// DropboxError is a non-2xx answer of the Dropbox API
type DropboxError struct {
	Endpoint   string
	StatusCode int
	Summary    string
}

func (e *DropboxError) Error() string {
	if e.Summary != "" {
		return fmt.Sprintf("dropbox %s returned %d: %s", e.Endpoint, e.StatusCode, e.Summary)
	}
	return fmt.Sprintf("dropbox %s returned %d", e.Endpoint, e.StatusCode)
}

type dropboxAccount struct {
	Email string `json:"email"`
	Name  struct {
		DisplayName string `json:"display_name"`
	} `json:"name"`
}

type dropboxUploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

type dropboxErrorBody struct {
	ErrorSummary string `json:"error_summary"`
}

func (d *Dropbox) Name() string { return "dropbox" }

// Check verifies the access token by fetching the current account
func (d *Dropbox) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.APIURL+"/users/get_current_account", nil)
	if err != nil {
		return fmt.Errorf("failed to create request with %w", err)
	}

	body, err := d.do(req, "users/get_current_account")
	if err != nil {
		return err
	}

	var account dropboxAccount
	if err := json.Unmarshal(body, &account); err != nil {
		return fmt.Errorf("failed to decode dropbox account with %w", err)
	}
	d.logger.Info("dropbox authenticated", "as", account.Name.DisplayName)
	return nil
}

// Store uploads data to /filename, replacing a brief of the same day
func (d *Dropbox) Store(ctx context.Context, filename string, data []byte) error {
	arg, err := json.Marshal(dropboxUploadArg{
		Path: path.Join("/", filename),
		Mode: "overwrite",
	})
	if err != nil {
		return fmt.Errorf("failed to encode upload argument with %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.ContentURL+"/files/upload", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request with %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Dropbox-API-Arg", string(arg))

	d.logger.Info("uploading brief to dropbox", "path", path.Join("/", filename), "bytes", len(data))
	if _, err := d.do(req, "files/upload"); err != nil {
		return err
	}
	d.logger.Info("brief uploaded")
	return nil
}

func (d *Dropbox) do(req *http.Request, endpoint string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dropbox %s request failed with %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dropbox %s response with %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &DropboxError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		var eb dropboxErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.ErrorSummary != "" {
			apiErr.Summary = eb.ErrorSummary
		} else {
			apiErr.Summary = string(body[:min(len(body), maxErrorBody)])
		}
		return nil, apiErr
	}
	return body, nil
}
