// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mistral is a minimal client for the Mistral document OCR API:
// file upload, signed URL issuance and the OCR job itself. The client
// holds no state between calls.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/pdiddy/mistral-ocr/internal/httputil"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// apiBase is the default service root. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.mistral.ai/v1"

const (
	// DefaultModel is the OCR model used when none is configured.
	DefaultModel = "mistral-ocr-latest"

	// DefaultExpiryHours is the signed URL lifetime. The URL is consumed
	// immediately, so one hour is plenty.
	DefaultExpiryHours = 1

	purposeOCR = "ocr"
	stage      = "ocr"
)

// Client talks to the OCR service.
type Client struct {
	HTTP   *http.Client
	APIKey string
	Config types.OCRConfig
}

// NewClient returns a client for apiKey. Zero config fields take defaults.
func NewClient(apiKey string, cfg types.OCRConfig) *Client {
	return &Client{
		HTTP:   &http.Client{Timeout: cfg.Timeout},
		APIKey: apiKey,
		Config: cfg,
	}
}

// UploadedFile is the service's record of an uploaded file.
type UploadedFile struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

type documentURLChunk struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrRequest struct {
	Model              string           `json:"model"`
	Document           documentURLChunk `json:"document"`
	IncludeImageBase64 bool             `json:"include_image_base64"`
}

// ProcessDocument uploads the document at path, obtains a signed URL for
// it, runs OCR on that URL and returns the response. A missing path is
// reported as types.ErrFileNotFound before any request is made; failures
// of the remote steps are reported as types.ErrRemoteService.
func (c *Client) ProcessDocument(ctx context.Context, path string) (*types.OCRResponse, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is a directory", path)
		}
		return nil, types.NewError(types.ErrFileNotFound, stage, path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrFileNotFound, stage, path, err)
	}

	uploaded, err := c.Upload(ctx, filepath.Base(path), content)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Str("file_id", uploaded.ID).Int("bytes", len(content)).Msg("uploaded document")

	signed, err := c.SignedURL(ctx, uploaded.ID)
	if err != nil {
		return nil, err
	}

	resp, err := c.OCR(ctx, signed)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("file_id", uploaded.ID).Int("pages", len(resp.Pages)).Str("model", resp.Model).Msg("ocr job finished")
	return resp, nil
}

// Upload sends content as a multipart file with purpose "ocr".
func (c *Client) Upload(ctx context.Context, filename string, content []byte) (*UploadedFile, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("purpose", purposeOCR); err != nil {
		return nil, remoteErr("upload", filename, err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, remoteErr("upload", filename, err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, remoteErr("upload", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, remoteErr("upload", filename, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.base()+"/files", &body)
	if err != nil {
		return nil, remoteErr("upload", filename, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var uf UploadedFile
	if err := httputil.DoJSON(ctx, c.HTTP, req, &uf); err != nil {
		return nil, remoteErr("upload", filename, err)
	}
	if uf.ID == "" {
		return nil, remoteErr("upload", filename, fmt.Errorf("response carries no file id"))
	}
	return &uf, nil
}

// SignedURL requests a time-limited URL for an uploaded file.
func (c *Client) SignedURL(ctx context.Context, fileID string) (string, error) {
	expiry := c.Config.ExpiryHours
	if expiry <= 0 {
		expiry = DefaultExpiryHours
	}

	u := fmt.Sprintf("%s/files/%s/url?%s", c.base(), url.PathEscape(fileID),
		url.Values{"expiry": {strconv.Itoa(expiry)}}.Encode())
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", remoteErr("signed url", fileID, err)
	}

	var sr signedURLResponse
	if err := httputil.DoJSON(ctx, c.HTTP, req, &sr); err != nil {
		return "", remoteErr("signed url", fileID, err)
	}
	if sr.URL == "" {
		return "", remoteErr("signed url", fileID, fmt.Errorf("response carries no url"))
	}
	return sr.URL, nil
}

// OCR runs the OCR job on documentURL, asking for inline base64 images.
func (c *Client) OCR(ctx context.Context, documentURL string) (*types.OCRResponse, error) {
	model := c.Config.Model
	if model == "" {
		model = DefaultModel
	}

	payload, err := json.Marshal(ocrRequest{
		Model:              model,
		Document:           documentURLChunk{Type: "document_url", DocumentURL: documentURL},
		IncludeImageBase64: true,
	})
	if err != nil {
		return nil, remoteErr("ocr job", model, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.base()+"/ocr", bytes.NewReader(payload))
	if err != nil {
		return nil, remoteErr("ocr job", model, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp types.OCRResponse
	if err := httputil.DoJSON(ctx, c.HTTP, req, &resp); err != nil {
		return nil, remoteErr("ocr job", model, err)
	}
	return &resp, nil
}

func (c *Client) base() string {
	if c.Config.APIBase != "" {
		return c.Config.APIBase
	}
	return apiBase
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if c.Config.UserAgent != "" {
		req.Header.Set("User-Agent", c.Config.UserAgent)
	}
	return req, nil
}

func remoteErr(op, ident string, err error) error {
	return types.NewError(types.ErrRemoteService, stage+" "+op, ident, err)
}
