package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/seqrag/seqrag-go/internal/generator"
	"github.com/seqrag/seqrag-go/internal/logging"
	"github.com/seqrag/seqrag-go/internal/store"
	"github.com/seqrag/seqrag-go/internal/workflow"
)

// fakeAsker returns a canned result or error and records the request.
type fakeAsker struct {
	result  *workflow.Result
	err     error
	lastReq workflow.Request
}

func (f *fakeAsker) Ask(_ context.Context, req workflow.Request) (*workflow.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// fakeIngester returns a canned chunk count.
type fakeIngester struct {
	chunks   int
	err      error
	lastFile string
	lastColl string
}

func (f *fakeIngester) IngestFile(_ context.Context, filename string, _ []byte, collection string) (int, error) {
	f.lastFile = filename
	f.lastColl = collection
	if f.err != nil {
		return 0, f.err
	}
	return f.chunks, nil
}

// fakeLedger records in memory.
type fakeLedger struct {
	records []store.Record
	err     error
}

func (f *fakeLedger) Record(_ context.Context, filename, collection string, chunks int) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, store.Record{Filename: filename, Collection: collection, Chunks: chunks})
	return nil
}

func (f *fakeLedger) List(_ context.Context, collection string) ([]store.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	if collection == "" {
		return f.records, nil
	}
	var out []store.Record
	for _, r := range f.records {
		if r.Collection == collection {
			out = append(out, r)
		}
	}
	return out, nil
}

// newTestServer builds a Server with the given fakes and default config.
func newTestServer(t *testing.T, a *fakeAsker, ing *fakeIngester, led Ledger, cfg *Config) *Server {
	t.Helper()
	if a == nil {
		a = &fakeAsker{result: &workflow.Result{Status: workflow.StatusDone}}
	}
	if ing == nil {
		ing = &fakeIngester{chunks: 1}
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	s, err := New(a, ing, led, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func postAsk(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleAsk_Done(t *testing.T) {
	t.Parallel()

	a := &fakeAsker{result: &workflow.Result{
		Status:   workflow.StatusDone,
		Answer:   &generator.Answer{Text: "Step 1: Done\nAll set."},
		Attempts: 1,
	}}
	s := newTestServer(t, a, nil, nil, nil)

	rec := postAsk(t, s, `{"question": "how is CO made?", "collection": "Custom"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result workflow.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Status != workflow.StatusDone {
		t.Errorf("status: expected done, got %q", result.Status)
	}
	if a.lastReq.Question != "how is CO made?" || a.lastReq.Collection != "Custom" {
		t.Errorf("request not forwarded: %+v", a.lastReq)
	}
}

func TestHandleAsk_Paused(t *testing.T) {
	t.Parallel()

	a := &fakeAsker{result: &workflow.Result{
		Status:    workflow.StatusAwaitingToolChoice,
		SessionID: "sess-1",
		Options:   []string{"Tavily", "Arxiv", "Wikipedia"},
	}}
	s := newTestServer(t, a, nil, nil, nil)

	rec := postAsk(t, s, `{"question": "q"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}

	var result workflow.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.SessionID != "sess-1" {
		t.Errorf("expected session id in response, got %q", result.SessionID)
	}
	if len(result.Options) != 3 {
		t.Errorf("expected 3 options, got %v", result.Options)
	}
}

func TestHandleAsk_Resume(t *testing.T) {
	t.Parallel()

	a := &fakeAsker{result: &workflow.Result{Status: workflow.StatusDone}}
	s := newTestServer(t, a, nil, nil, nil)

	rec := postAsk(t, s, `{"session_id": "sess-1", "tool_choice": "Wikipedia"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", rec.Code)
	}
	if a.lastReq.SessionID != "sess-1" || a.lastReq.ToolChoice != "Wikipedia" {
		t.Errorf("resume fields not forwarded: %+v", a.lastReq)
	}
}

func TestHandleAsk_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{not json`},
		{name: "missing question", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, nil, nil, nil, nil)
			rec := postAsk(t, s, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleAsk_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid tool choice",
			err:        &workflow.InvalidChoiceError{Choice: "Bing", Options: []string{"Tavily"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_tool_choice",
		},
		{
			name:       "session not found",
			err:        workflow.ErrSessionNotFound,
			wantStatus: http.StatusNotFound,
			wantCode:   "session_not_found",
		},
		{
			name:       "dependency error",
			err:        &workflow.DependencyError{Dependency: "retriever", Err: errors.New("qdrant down")},
			wantStatus: http.StatusBadGateway,
			wantCode:   "dependency_error",
		},
		{
			name:       "loop limit",
			err:        &workflow.LoopLimitError{Attempts: 3},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "loop_limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newTestServer(t, &fakeAsker{err: tt.err}, nil, nil, nil)
			rec := postAsk(t, s, `{"question": "q"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status: expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}

			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code: expected %q, got %q", tt.wantCode, resp.Code)
			}
			if resp.Error == "" {
				t.Errorf("expected an error message")
			}
		})
	}
}

// TestHandleAsk_InvalidChoiceCarriesOptions verifies the 400 payload
// re-offers the valid tool names.
func TestHandleAsk_InvalidChoiceCarriesOptions(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeAsker{err: &workflow.InvalidChoiceError{
		Choice:  "Bing",
		Options: []string{"Tavily", "Arxiv", "Wikipedia"},
	}}, nil, nil, nil)

	rec := postAsk(t, s, `{"session_id": "sess-1", "tool_choice": "Bing"}`)
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Options) != 3 || resp.Options[0] != "Tavily" {
		t.Errorf("expected options in error payload, got %v", resp.Options)
	}
}
