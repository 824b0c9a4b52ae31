package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

// multipartBody builds a multipart form with one file part and optional
// collection field.
func multipartBody(t *testing.T, filename, content, collection string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	if collection != "" {
		w.WriteField("collection", collection)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func postUpload(t *testing.T, s *Server, filename, content, collection string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, content, collection)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleUpload_OK(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{chunks: 7}
	led := &fakeLedger{}
	s := newTestServer(t, nil, ing, led, nil)

	rec := postUpload(t, s, "notes.txt", "some document text", "Wiki")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Filename != "notes.txt" || resp.Collection != "Wiki" || resp.Chunks != 7 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if ing.lastColl != "Wiki" {
		t.Errorf("collection not forwarded: %q", ing.lastColl)
	}
	if len(led.records) != 1 || led.records[0].Chunks != 7 {
		t.Errorf("ledger not updated: %+v", led.records)
	}
}

// TestHandleUpload_DefaultCollection verifies that omitting the collection
// field lands the document in Custom.
func TestHandleUpload_DefaultCollection(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{chunks: 1}
	s := newTestServer(t, nil, ing, nil, nil)

	rec := postUpload(t, s, "notes.txt", "text", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	if ing.lastColl != "Custom" {
		t.Errorf("expected default collection Custom, got %q", ing.lastColl)
	}
}

func TestHandleUpload_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		filename   string
		collection string
		wantStatus int
	}{
		{name: "unknown collection", filename: "a.txt", collection: "Secret", wantStatus: http.StatusBadRequest},
		{name: "bad extension", filename: "a.exe", collection: "Wiki", wantStatus: http.StatusBadRequest},
		{name: "missing file", filename: "", collection: "Wiki", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, nil, nil, nil, nil)
			rec := postUpload(t, s, tt.filename, "x", tt.collection)
			if rec.Code != tt.wantStatus {
				t.Errorf("status: expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandleUpload_IngestError(t *testing.T) {
	t.Parallel()

	ing := &fakeIngester{err: errors.New("embedder down")}
	s := newTestServer(t, nil, ing, nil, nil)

	rec := postUpload(t, s, "a.txt", "text", "Wiki")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: expected 502, got %d", rec.Code)
	}
}

// TestHandleUpload_LedgerFailureIsNotFatal: a ledger write error must not
// fail an upload whose chunks are already stored.
func TestHandleUpload_LedgerFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	led := &fakeLedger{err: errors.New("disk full")}
	s := newTestServer(t, nil, &fakeIngester{chunks: 2}, led, nil)

	rec := postUpload(t, s, "a.txt", "text", "Wiki")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
}

func TestHandleDocuments(t *testing.T) {
	t.Parallel()

	led := &fakeLedger{}
	led.Record(nil, "a.txt", "Wiki", 3)
	led.Record(nil, "b.pdf", "Custom", 9)
	s := newTestServer(t, nil, nil, led, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	var resp documentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Documents) != 2 {
		t.Errorf("expected 2 documents, got %d", len(resp.Documents))
	}
}

func TestHandleDocuments_CollectionFilter(t *testing.T) {
	t.Parallel()

	led := &fakeLedger{}
	led.Record(nil, "a.txt", "Wiki", 3)
	led.Record(nil, "b.pdf", "Custom", 9)
	s := newTestServer(t, nil, nil, led, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents?collection=Custom", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp documentsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].Filename != "b.pdf" {
		t.Errorf("filter not applied: %+v", resp.Documents)
	}
}

func TestHandleDocuments_NoLedger(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: expected 404, got %d", rec.Code)
	}
}
