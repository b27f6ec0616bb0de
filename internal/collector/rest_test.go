package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRESTFetcher_FetchBars(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if r.URL.Query().Get("symbol") != "QQQ" || r.URL.Query().Get("interval") != "15m" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[{"timestamp":1709566200,"open":2,"high":3,"low":1,"close":2.5},
			{"timestamp":1709564400,"open":1,"high":2,"low":0.5,"close":1.5}]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "")
	bars, err := f.FetchBars(context.Background(), "QQQ", "15m", "5d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if auth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", auth)
	}
	if len(bars) != 2 || bars[0].Close != 1.5 {
		t.Errorf("expected bars sorted by time, got %+v", bars)
	}
}

func TestRESTFetcher_NotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	bars, err := NewRESTFetcher(srv.URL, "", "").FetchBars(context.Background(), "NOPE", "30m", "7d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 0 {
		t.Errorf("expected no bars, got %d", len(bars))
	}
}
