package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RemoteObject is the drive item descriptor the remote store returns for an
// uploaded or queried object.
type RemoteObject struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// APIError is a non-success response from the remote drive, carrying whatever
// error payload the store sent back.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive API error (status %d): %s", e.Status, e.Message)
}

// DriveClient is the remote object store surface the upload pipeline needs.
type DriveClient interface {
	SimplePut(ctx context.Context, token, folder, name, mimeType string, data []byte) (*RemoteObject, error)
	CreateUploadSession(ctx context.Context, token, folder, name string) (string, error)
	PutChunk(ctx context.Context, uploadURL string, chunk []byte, start, end, total int64) (*RemoteObject, error)
	ItemDownloadURL(ctx context.Context, token, itemID string) (string, error)
	DeleteItem(ctx context.Context, token, itemID string) error
}

// Client talks to a Graph-style drive REST API over HTTPS. Items live under
// a drive that is resolved lazily from the configured site (two round-trips:
// site lookup, then drive list) and cached for the process lifetime.
type Client struct {
	baseURL  string
	siteHost string
	sitePath string
	httpc    *http.Client
	logger   *zap.Logger

	mu       sync.Mutex
	driveURL string
}

func NewClient(baseURL, siteHost, sitePath string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		siteHost: siteHost,
		sitePath: sitePath,
		httpc:    &http.Client{Timeout: 120 * time.Second},
		logger:   logger,
	}
}

type siteResponse struct {
	ID string `json:"id"`
}

type driveListResponse struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
}

// resolveDriveURL resolves the site, then its default drive, and caches the
// resulting drive base URL.
func (c *Client) resolveDriveURL(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.driveURL != "" {
		return c.driveURL, nil
	}

	var site siteResponse
	siteURL := fmt.Sprintf("%s/sites/%s:%s", c.baseURL, c.siteHost, c.sitePath)
	if err := c.getJSON(ctx, token, siteURL, &site); err != nil {
		return "", fmt.Errorf("resolving site: %w", err)
	}

	var drives driveListResponse
	if err := c.getJSON(ctx, token, fmt.Sprintf("%s/sites/%s/drives", c.baseURL, site.ID), &drives); err != nil {
		return "", fmt.Errorf("resolving drive: %w", err)
	}
	if len(drives.Value) == 0 {
		return "", fmt.Errorf("site %s has no drives", site.ID)
	}

	c.driveURL = fmt.Sprintf("%s/drives/%s", c.baseURL, drives.Value[0].ID)
	c.logger.Info("resolved drive", zap.String("drive_url", c.driveURL))
	return c.driveURL, nil
}

// SimplePut uploads a payload in a single atomic request. The remote store
// only allows this for small payloads; larger ones go through an upload
// session.
func (c *Client) SimplePut(ctx context.Context, token, folder, name, mimeType string, data []byte) (*RemoteObject, error) {
	driveURL, err := c.resolveDriveURL(ctx, token)
	if err != nil {
		return nil, err
	}

	putURL := fmt.Sprintf("%s/root:/%s/%s:/content", driveURL, url.PathEscape(folder), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, putURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, remoteError(resp)
	}

	var obj RemoteObject
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decoding item descriptor: %w", err)
	}
	return &obj, nil
}

type uploadSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// CreateUploadSession asks the store for a temporary URL that accepts
// sequential chunk PUTs for one large upload.
func (c *Client) CreateUploadSession(ctx context.Context, token, folder, name string) (string, error) {
	driveURL, err := c.resolveDriveURL(ctx, token)
	if err != nil {
		return "", err
	}

	sessURL := fmt.Sprintf("%s/root:/%s/%s:/createUploadSession", driveURL, url.PathEscape(folder), url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sessURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", remoteError(resp)
	}

	var sess uploadSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return "", fmt.Errorf("decoding upload session: %w", err)
	}
	if sess.UploadURL == "" {
		return "", fmt.Errorf("upload session response missing uploadUrl")
	}
	return sess.UploadURL, nil
}

// PutChunk uploads one contiguous byte range to an upload session URL. The
// store acknowledges intermediate chunks with 202 and an empty descriptor;
// the final chunk's response body is the terminal item descriptor, which is
// returned non-nil.
func (c *Client) PutChunk(ctx context.Context, uploadURL string, chunk []byte, start, end, total int64) (*RemoteObject, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(chunk))
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(chunk))
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, total))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		return nil, nil
	case http.StatusOK, http.StatusCreated:
		var obj RemoteObject
		if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
			return nil, fmt.Errorf("decoding item descriptor: %w", err)
		}
		return &obj, nil
	default:
		return nil, remoteError(resp)
	}
}

type itemResponse struct {
	ID          string `json:"id"`
	DownloadURL string `json:"downloadUrl"`
}

// ItemDownloadURL fetches the item's metadata and returns the signed,
// time-limited download link the store mints for it.
func (c *Client) ItemDownloadURL(ctx context.Context, token, itemID string) (string, error) {
	driveURL, err := c.resolveDriveURL(ctx, token)
	if err != nil {
		return "", err
	}

	var item itemResponse
	if err := c.getJSON(ctx, token, fmt.Sprintf("%s/items/%s", driveURL, url.PathEscape(itemID)), &item); err != nil {
		return "", err
	}
	if item.DownloadURL == "" {
		return "", fmt.Errorf("item %s has no download URL", itemID)
	}
	return item.DownloadURL, nil
}

// DeleteItem removes an object from the drive.
func (c *Client) DeleteItem(ctx context.Context, token, itemID string) error {
	driveURL, err := c.resolveDriveURL(ctx, token)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fmt.Sprintf("%s/items/%s", driveURL, url.PathEscape(itemID)), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, token, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type remoteErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// remoteError extracts the store's error payload, falling back to the raw
// body when it is not the usual JSON envelope.
func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed remoteErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return &APIError{Status: resp.StatusCode, Message: parsed.Error.Message}
	}
	return &APIError{Status: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
}
