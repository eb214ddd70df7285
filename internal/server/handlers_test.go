package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/seikyu/internal/chat"
	"github.com/hyperjump/seikyu/internal/config"
	"github.com/hyperjump/seikyu/internal/ingest"
	"github.com/hyperjump/seikyu/internal/keyword"
	"github.com/hyperjump/seikyu/internal/llm"
	"github.com/hyperjump/seikyu/internal/models"
	"github.com/hyperjump/seikyu/internal/session"
	"github.com/hyperjump/seikyu/internal/storage"
)

type stubIngestor struct {
	result *ingest.Result
	err    error
	body   string
	typ    string
}

func (s *stubIngestor) Ingest(ctx context.Context, r io.Reader, declaredType string) (*ingest.Result, error) {
	data, _ := io.ReadAll(r)
	s.body = string(data)
	s.typ = declaredType
	return s.result, s.err
}

type stubRetriever struct{ texts []string }

func (s *stubRetriever) Query(ctx context.Context, text string, k int) ([]string, error) {
	return s.texts, nil
}

type stubVectors struct{ size int }

func (s *stubVectors) Size() int { return s.size }

func newTestServer(t *testing.T, ingestor DocumentIngestor, chatClient llm.ChatClient) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	keywords, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = keywords.Close() })

	if chatClient == nil {
		chatClient = &llm.MockClient{}
	}
	router := chat.NewRouter(chatClient, &stubRetriever{})
	return NewServer(ingestor, store, router, session.NewManager(), keywords, &stubVectors{size: 7},
		&config.ServerConfig{Host: "127.0.0.1", Port: 0}, zap.NewNop())
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleUploadDocument(t *testing.T) {
	ingestor := &stubIngestor{result: &ingest.Result{
		Kind:    models.KindInvoice,
		Saved:   true,
		Message: "Record with PO Number PO-100 successfully saved.",
	}}
	srv := newTestServer(t, ingestor, nil)

	body, contentType := multipartBody(t, "invoice.json", `{"po_number":"PO-100"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if ingestor.typ != ".json" {
		t.Errorf("declared type: got %q", ingestor.typ)
	}
	if ingestor.body != `{"po_number":"PO-100"}` {
		t.Errorf("uploaded bytes not forwarded: %q", ingestor.body)
	}
}

func TestHandleUploadDocument_DuplicateIsOK(t *testing.T) {
	ingestor := &stubIngestor{result: &ingest.Result{
		Kind:    models.KindInvoice,
		Saved:   false,
		Message: "Duplicate detected: record with PO Number PO-100 already exists.",
	}}
	srv := newTestServer(t, ingestor, nil)

	body, contentType := multipartBody(t, "invoice.json", "{}")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate should be 200, got %d", rec.Code)
	}
	var result ingest.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Saved {
		t.Error("response must report the duplicate")
	}
}

func TestHandleUploadDocument_MissingFile(t *testing.T) {
	srv := newTestServer(t, &stubIngestor{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewBufferString("not multipart"))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestHandleListRecords(t *testing.T) {
	srv := newTestServer(t, &stubIngestor{}, nil)
	invoice := &models.Record{PONumber: models.Ptr("PO-100"), InvoiceNumber: models.Ptr("INV-55")}
	if _, err := srv.records.SaveInvoice(context.Background(), invoice); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/records/invoices", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var resp struct {
		Invoices []*models.Record `json:"invoices"`
		Count    int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || models.Deref(resp.Invoices[0].InvoiceNumber) != "INV-55" {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/records/purchase-orders", nil)
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestHandleChat(t *testing.T) {
	calls := 0
	client := &llm.MockClient{CompleteFunc: func(prompt string) (string, error) {
		calls++
		if calls%2 == 1 {
			return models.TokenInContext, nil
		}
		return "the total is $250.00", nil
	}}
	srv := newTestServer(t, &stubIngestor{}, client)

	body, _ := json.Marshal(chatRequest{Message: "what was the total?"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID == "" {
		t.Error("a new session ID must be minted")
	}
	if resp.Reply != "the total is $250.00" || resp.Class != "in_context" {
		t.Errorf("unexpected response: %+v", resp)
	}

	// Second message on the same session reuses it.
	body, _ = json.Marshal(chatRequest{SessionID: resp.SessionID, Message: "thanks"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	var second chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if second.SessionID != resp.SessionID {
		t.Error("session ID must be stable across messages")
	}
	if srv.sessions.Len() != 1 {
		t.Errorf("expected 1 session, got %d", srv.sessions.Len())
	}
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	srv := newTestServer(t, &stubIngestor{}, nil)
	body, _ := json.Marshal(chatRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestHandleSearch(t *testing.T) {
	srv := newTestServer(t, &stubIngestor{}, nil)
	keywords := srv.keywords.(*keyword.BleveIndex)
	rec := &models.Record{PONumber: models.Ptr("PO-100"), CustomerName: models.Ptr("Acme Corp")}
	if err := keywords.IndexRecord(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(searchRequest{Query: "acme"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Results []*keyword.Result `json:"results"`
		Count   int               `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 {
		t.Errorf("expected 1 hit, got %d", resp.Count)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, &stubIngestor{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["vector_index_size"] != float64(7) {
		t.Errorf("vector index size missing: %v", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &stubIngestor{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d", rec.Code)
	}
}
