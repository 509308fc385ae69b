package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClient_RecognizePage(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req recognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Page != 2 {
			t.Errorf("page = %d, want 2", req.Page)
		}
		if req.Document == "" {
			t.Error("document payload is empty")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 0,
			"data": map[string]string{"text": "recognized page text"},
		})
	}))
	defer srv.Close()

	client := NewHTTPClient(&Config{Endpoint: srv.URL, APIToken: "tok"})
	text, err := client.RecognizePage(context.Background(), []byte("%PDF-1.4"), 2)
	if err != nil {
		t.Fatalf("RecognizePage: %v", err)
	}
	if text != "recognized page text" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth header = %q", gotAuth)
	}
}

func TestHTTPClient_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 3, "msg": "unreadable page"})
	}))
	defer srv.Close()

	client := NewHTTPClient(&Config{Endpoint: srv.URL})
	if _, err := client.RecognizePage(context.Background(), nil, 1); err == nil {
		t.Error("expected error for non-zero service code")
	}
}

func TestHTTPClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewHTTPClient(&Config{Endpoint: srv.URL})
	if _, err := client.RecognizePage(context.Background(), nil, 1); err == nil {
		t.Error("expected error for non-200 status")
	}
}
