// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mistral

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mistral-ocr/internal/httputil"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// fakeService records requests to the three OCR endpoints and answers
// with canned responses. Setting a fail* field makes that step return 500.
type fakeService struct {
	mu    sync.Mutex
	calls []string

	uploadName    string
	uploadPurpose string
	uploadContent []byte
	expiry        string
	ocrBody       ocrRequest
	authHeaders   []string

	failUpload bool
	failSigned bool
	failOCR    bool
}

func (f *fakeService) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		f.record("upload", r)
		if f.failUpload {
			http.Error(w, `{"message":"upload rejected"}`, http.StatusInternalServerError)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)

		f.mu.Lock()
		f.uploadName = hdr.Filename
		f.uploadPurpose = r.FormValue("purpose")
		f.uploadContent = data
		f.mu.Unlock()

		json.NewEncoder(w).Encode(UploadedFile{ID: "file-abc", Object: "file", Purpose: "ocr", Filename: hdr.Filename})
	})
	mux.HandleFunc("GET /files/{id}/url", func(w http.ResponseWriter, r *http.Request) {
		f.record("signed", r)
		if f.failSigned {
			http.Error(w, `{"detail":"no such file"}`, http.StatusNotFound)
			return
		}
		f.mu.Lock()
		f.expiry = r.URL.Query().Get("expiry")
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"url": "https://files.example/" + r.PathValue("id") + "?sig=xyz"})
	})
	mux.HandleFunc("POST /ocr", func(w http.ResponseWriter, r *http.Request) {
		f.record("ocr", r)
		if f.failOCR {
			http.Error(w, `{"message":"model overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		var req ocrRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.ocrBody = req
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"pages": [
				{"index": 0, "markdown": "# Title\n\n![img-0.jpeg](img-0.jpeg)", "images": [
					{"id": "img-0.jpeg", "top_left_x": 1, "top_left_y": 2, "bottom_right_x": 3, "bottom_right_y": 4,
					 "image_base64": "data:image/jpeg;base64,aGVsbG8="}
				], "dimensions": {"dpi": 200, "height": 2200, "width": 1700}},
				{"index": 1, "markdown": "second page", "images": []}
			],
			"model": "mistral-ocr-2505",
			"usage_info": {"pages_processed": 2, "doc_size_bytes": 1234}
		}`)
	})
	return mux
}

func (f *fakeService) record(name string, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
}

func (f *fakeService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setup(t *testing.T, f *fakeService) *Client {
	t.Helper()
	ts := httptest.NewServer(f.handler(t))
	t.Cleanup(ts.Close)

	old := apiBase
	apiBase = ts.URL
	t.Cleanup(func() { apiBase = old })

	c := NewClient("sk-test", types.OCRConfig{HTTPConfig: types.HTTPConfig{UserAgent: "mistral-ocr/test"}})
	c.HTTP = ts.Client()
	return c
}

func writeDoc(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 body"), 0o644))
	return p
}

func TestProcessDocument(t *testing.T) {
	f := &fakeService{}
	c := setup(t, f)
	doc := writeDoc(t, "converted.pdf")

	resp, err := c.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"upload", "signed", "ocr"}, f.calls)
	for _, h := range f.authHeaders {
		assert.Equal(t, "Bearer sk-test", h)
	}

	assert.Equal(t, "converted.pdf", f.uploadName)
	assert.Equal(t, "ocr", f.uploadPurpose)
	assert.Equal(t, "%PDF-1.4 body", string(f.uploadContent))
	assert.Equal(t, "1", f.expiry)

	assert.Equal(t, DefaultModel, f.ocrBody.Model)
	assert.Equal(t, "document_url", f.ocrBody.Document.Type)
	assert.Equal(t, "https://files.example/file-abc?sig=xyz", f.ocrBody.Document.DocumentURL)
	assert.True(t, f.ocrBody.IncludeImageBase64)

	require.Len(t, resp.Pages, 2)
	assert.Equal(t, 0, resp.Pages[0].Index)
	require.Len(t, resp.Pages[0].Images, 1)
	assert.Equal(t, "img-0.jpeg", resp.Pages[0].Images[0].ID)
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", resp.Pages[0].Images[0].ImageBase64)
	require.NotNil(t, resp.Pages[0].Dimensions)
	assert.Equal(t, 200, resp.Pages[0].Dimensions.DPI)
	assert.Equal(t, "mistral-ocr-2505", resp.Model)
	assert.Equal(t, 2, resp.UsageInfo.PagesProcessed)
}

func TestProcessDocument_ConfiguredModelAndExpiry(t *testing.T) {
	f := &fakeService{}
	c := setup(t, f)
	c.Config.Model = "mistral-ocr-2503"
	c.Config.ExpiryHours = 24

	_, err := c.ProcessDocument(context.Background(), writeDoc(t, "a.pdf"))
	require.NoError(t, err)

	assert.Equal(t, "mistral-ocr-2503", f.ocrBody.Model)
	assert.Equal(t, "24", f.expiry)
}

func TestProcessDocument_MissingFileMakesNoCalls(t *testing.T) {
	f := &fakeService{}
	c := setup(t, f)
	missing := filepath.Join(t.TempDir(), "gone.pdf")

	_, err := c.ProcessDocument(context.Background(), missing)
	require.Error(t, err)

	assert.True(t, errors.Is(err, types.ErrFileNotFound))
	assert.Contains(t, err.Error(), missing)
	assert.Equal(t, 0, f.callCount())
}

func TestProcessDocument_DirectoryIsNotFound(t *testing.T) {
	f := &fakeService{}
	c := setup(t, f)

	_, err := c.ProcessDocument(context.Background(), t.TempDir())
	assert.True(t, errors.Is(err, types.ErrFileNotFound))
	assert.Equal(t, 0, f.callCount())
}

func TestProcessDocument_RemoteFailures(t *testing.T) {
	tests := []struct {
		name      string
		svc       *fakeService
		wantCalls []string
		wantCode  int
		wantMsg   string
		wantStage string
	}{
		{
			name:      "upload fails",
			svc:       &fakeService{failUpload: true},
			wantCalls: []string{"upload"},
			wantCode:  http.StatusInternalServerError,
			wantMsg:   "upload rejected",
			wantStage: "ocr upload",
		},
		{
			name:      "signed url fails",
			svc:       &fakeService{failSigned: true},
			wantCalls: []string{"upload", "signed"},
			wantCode:  http.StatusNotFound,
			wantMsg:   "no such file",
			wantStage: "ocr signed url",
		},
		{
			name:      "ocr job fails",
			svc:       &fakeService{failOCR: true},
			wantCalls: []string{"upload", "signed", "ocr"},
			wantCode:  http.StatusServiceUnavailable,
			wantMsg:   "model overloaded",
			wantStage: "ocr ocr job",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := setup(t, tt.svc)

			_, err := c.ProcessDocument(context.Background(), writeDoc(t, "doc.pdf"))
			require.Error(t, err)

			assert.True(t, errors.Is(err, types.ErrRemoteService))
			assert.Equal(t, tt.wantCalls, tt.svc.calls, "no retries, no later steps")

			var se *httputil.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.wantCode, se.StatusCode)
			assert.Equal(t, tt.wantMsg, se.Message)

			var perr *types.Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantStage, perr.Stage)
		})
	}
}

func TestProcessDocument_TransportErrorIsRemote(t *testing.T) {
	c := NewClient("sk-test", types.OCRConfig{APIBase: "http://127.0.0.1:1"})

	_, err := c.ProcessDocument(context.Background(), writeDoc(t, "doc.pdf"))
	assert.True(t, errors.Is(err, types.ErrRemoteService), "got %v", err)
}

func TestClientIsStateless(t *testing.T) {
	f := &fakeService{}
	c := setup(t, f)
	doc := writeDoc(t, "doc.pdf")

	first, err := c.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)
	second, err := c.ProcessDocument(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 6, f.callCount())
}
