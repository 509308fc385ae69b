package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/curalog/curalog/internal/coordinator"
	"github.com/curalog/curalog/internal/identity"
	"github.com/curalog/curalog/internal/models"
	"github.com/curalog/curalog/internal/pipeline"
	"github.com/curalog/curalog/internal/retrieval"
)

type fakeProcessor struct {
	validateErr error
	result      *models.ProcessingResult
	processed   []models.RawDocument
}

func (f *fakeProcessor) Validate(doc models.RawDocument) error { return f.validateErr }

func (f *fakeProcessor) Process(ctx context.Context, doc models.RawDocument) *models.ProcessingResult {
	f.processed = append(f.processed, doc)
	return f.result
}

type fakeQueue struct {
	submitID  string
	submitErr error
	status    string
	result    *models.ProcessingResult
	statusErr error
	submitted []models.RawDocument
}

func (f *fakeQueue) Submit(doc models.RawDocument) (string, error) {
	f.submitted = append(f.submitted, doc)
	return f.submitID, f.submitErr
}

func (f *fakeQueue) Status(ctx context.Context, documentID string) (string, *models.ProcessingResult, error) {
	return f.status, f.result, f.statusErr
}

func (f *fakeQueue) Running() int { return 1 }

type fakeSearcher struct {
	resp *retrieval.Response
	err  error
	got  retrieval.Query
}

func (f *fakeSearcher) Search(ctx context.Context, q retrieval.Query) (*retrieval.Response, error) {
	f.got = q
	return f.resp, f.err
}

type fakeEraser struct {
	outcomes []coordinator.Outcome
	err      error
	gotKey   string
}

func (f *fakeEraser) DeletePatient(ctx context.Context, patientID string) ([]coordinator.Outcome, error) {
	f.gotKey = patientID
	return f.outcomes, f.err
}

func newTestServer(proc *fakeProcessor, queue *fakeQueue, search *fakeSearcher, eraser *fakeEraser) *Server {
	var engine Searcher
	if search != nil {
		engine = search
	}
	var er Eraser
	if eraser != nil {
		er = eraser
	}
	ids := identity.NewManager("salt", nil)
	return NewServer(proc, queue, engine, er, ids, Stats{}, Config{}, nil)
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSubmitDocumentAsync(t *testing.T) {
	queue := &fakeQueue{submitID: "doc-123"}
	srv := newTestServer(&fakeProcessor{}, queue, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/documents", submitRequest{
		FilePath: "/tmp/report.pdf",
		CallerID: "caller-1",
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["document_id"] != "doc-123" || resp["status"] != models.StatusProcessing {
		t.Errorf("response = %v", resp)
	}
	if len(queue.submitted) != 1 || !queue.submitted[0].Background {
		t.Errorf("queued doc = %+v", queue.submitted)
	}
}

func TestSubmitDocumentSync(t *testing.T) {
	proc := &fakeProcessor{result: &models.ProcessingResult{DocumentID: "doc-1", Success: true}}
	srv := newTestServer(proc, &fakeQueue{}, nil, nil)

	w := postJSON(t, srv.Router(), "/api/v1/documents", submitRequest{
		FilePath:    "/tmp/report.pdf",
		CallerID:    "caller-1",
		Synchronous: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if len(proc.processed) != 1 || proc.processed[0].Background {
		t.Errorf("processed = %+v", proc.processed)
	}
	var resp models.ProcessingResult
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.DocumentID != "doc-1" {
		t.Errorf("result = %+v", resp)
	}
}

func TestSubmitDocumentValidation(t *testing.T) {
	cases := []struct {
		name     string
		body     submitRequest
		validate error
		want     int
	}{
		{"missing file path", submitRequest{CallerID: "c"}, nil, http.StatusBadRequest},
		{"missing caller", submitRequest{FilePath: "/tmp/a.pdf"}, nil, http.StatusBadRequest},
		{"unsupported type", submitRequest{FilePath: "/tmp/a.txt", CallerID: "c"},
			pipeline.ErrUnsupportedType, http.StatusBadRequest},
		{"too large", submitRequest{FilePath: "/tmp/a.pdf", CallerID: "c"},
			pipeline.ErrFileTooLarge, http.StatusBadRequest},
		{"missing file", submitRequest{FilePath: "/tmp/a.pdf", CallerID: "c"},
			pipeline.ErrFileMissing, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakeProcessor{validateErr: tc.validate}, &fakeQueue{}, nil, nil)
			w := postJSON(t, srv.Router(), "/api/v1/documents", tc.body)
			if w.Code != tc.want {
				t.Errorf("status: got %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestDocumentResultStatuses(t *testing.T) {
	cases := []struct {
		name     string
		queue    *fakeQueue
		wantCode int
		wantKey  string
	}{
		{"not found", &fakeQueue{status: models.StatusNotFound}, http.StatusNotFound, models.StatusNotFound},
		{"processing", &fakeQueue{status: models.StatusProcessing}, http.StatusOK, models.StatusProcessing},
		{"completed", &fakeQueue{
			status: models.StatusCompleted,
			result: &models.ProcessingResult{DocumentID: "doc-1", Success: true},
		}, http.StatusOK, models.StatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(&fakeProcessor{}, tc.queue, nil, nil)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/doc-1/result", nil)
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)
			if w.Code != tc.wantCode {
				t.Fatalf("status: got %d", w.Code)
			}
			var resp map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp["status"] != tc.wantKey {
				t.Errorf("status field = %v", resp["status"])
			}
		})
	}
}

func TestPatientSearch(t *testing.T) {
	search := &fakeSearcher{resp: &retrieval.Response{
		Hits:  []*retrieval.FusedHit{{ChunkID: "ch-1", Text: "knee pain", Score: 0.9}},
		Total: 1,
	}}
	srv := newTestServer(&fakeProcessor{}, &fakeQueue{}, search, nil)

	w := postJSON(t, srv.Router(), "/api/v1/patients/search", searchRequest{
		CallerID: "caller-1", Query: "knee pain", Limit: 5,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if search.got.CallerID != "caller-1" || search.got.Text != "knee pain" || search.got.Limit != 5 {
		t.Errorf("query passed = %+v", search.got)
	}
	var resp struct {
		Hits  []retrieval.FusedHit `json:"hits"`
		Total int                  `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Hits) != 1 || resp.Hits[0].ChunkID != "ch-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestPatientSearchRejectsEmptyFields(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, &fakeQueue{}, &fakeSearcher{}, nil)
	for _, body := range []searchRequest{
		{Query: "knee"},
		{CallerID: "caller-1"},
	} {
		w := postJSON(t, srv.Router(), "/api/v1/patients/search", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %+v: got %d", body, w.Code)
		}
	}
}

func TestPatientSearchErrorHidesDetail(t *testing.T) {
	search := &fakeSearcher{err: errors.New("bleve: index corrupt at /var/lib/curalog")}
	srv := newTestServer(&fakeProcessor{}, &fakeQueue{}, search, nil)

	w := postJSON(t, srv.Router(), "/api/v1/patients/search", searchRequest{
		CallerID: "caller-1", Query: "knee",
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("bleve")) {
		t.Error("internal error detail leaked to response")
	}
}

func TestDeletePatient(t *testing.T) {
	eraser := &fakeEraser{outcomes: []coordinator.Outcome{
		{Backend: coordinator.BackendDocument, Success: true},
		{Backend: coordinator.BackendGraph, Success: true},
		{Backend: coordinator.BackendVector, Success: true},
		{Backend: coordinator.BackendProfile, Success: true},
	}}
	srv := newTestServer(&fakeProcessor{}, &fakeQueue{}, nil, eraser)

	raw, _ := json.Marshal(deletePatientRequest{CallerID: "caller-1"})
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/patients", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	if eraser.gotKey == "caller-1" || eraser.gotKey == "" {
		t.Errorf("raw caller ID must not reach the coordinator: %q", eraser.gotKey)
	}
	var resp struct {
		Complete bool `json:"complete"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Complete {
		t.Error("expected complete deletion")
	}
}

func TestDeletePatientPartialFailure(t *testing.T) {
	eraser := &fakeEraser{outcomes: []coordinator.Outcome{
		{Backend: coordinator.BackendDocument, Success: true},
		{Backend: coordinator.BackendGraph, Success: false, Error: "badger closed"},
	}}
	srv := newTestServer(&fakeProcessor{}, &fakeQueue{}, nil, eraser)

	raw, _ := json.Marshal(deletePatientRequest{CallerID: "caller-1"})
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/patients", bytes.NewReader(raw))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("status: got %d", w.Code)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("badger")) {
		t.Error("backend error detail leaked to response")
	}
}

func TestStatusAndHealth(t *testing.T) {
	srv := newTestServer(&fakeProcessor{}, &fakeQueue{}, nil, nil)
	srv.stats = Stats{
		CountRecords: func(ctx context.Context) (int64, error) { return 7, nil },
		VectorSize:   func() int { return 21 },
		ChunkCount:   func() (uint64, error) { return 42, nil },
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["clinical_records"] != float64(7) || resp["vector_index_size"] != float64(21) ||
		resp["indexed_chunks"] != float64(42) || resp["workers_running"] != float64(1) {
		t.Errorf("response = %v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("health: got %d", w.Code)
	}
}
