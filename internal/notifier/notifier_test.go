package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"PullbackScanner/internal/model"
)

func sampleRun(marketOK bool) *model.ScanRun {
	at := time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)
	return &model.ScanRun{
		ID: "r1", StartedAt: at.Add(-5 * time.Second), FinishedAt: at, Interval: "30m", MarketOK: marketOK,
		Results: []model.ScanResult{
			{Ticker: "MSFT", Category: model.CategoryBuy, Price: 412.345, Strength: 0.4},
			{Ticker: "AAPL", Category: model.CategoryBuy, Price: 190, Strength: 0.8},
			{Ticker: "NVDA", Category: model.CategorySetup, Price: 880.1, Note: "market filter"},
			{Ticker: "TSLA", Category: model.CategoryTrending},
			{Ticker: "BAD<1>", Category: model.CategoryError, Err: "boom"},
		},
	}
}

func TestFormatScanReport(t *testing.T) {
	msg := FormatScanReport(sampleRun(true))

	for _, want := range []string{"<b>BUY</b> (2)", "AAPL 190.00", "MSFT 412.35", "<b>SETUP</b> (1)", "(market filter)", "TRENDING 1", "ERROR 1", "BAD&lt;1&gt;"} {
		if !strings.Contains(msg, want) {
			t.Errorf("report missing %q:\n%s", want, msg)
		}
	}
	if strings.Index(msg, "AAPL") > strings.Index(msg, "MSFT") {
		t.Error("stronger AAPL should be listed before MSFT")
	}
	if strings.Contains(msg, "market filter failed") {
		t.Error("market warning shown with MarketOK=true")
	}
	if !strings.Contains(FormatScanReport(sampleRun(false)), "market filter failed") {
		t.Error("market warning missing with MarketOK=false")
	}
}

func TestFormatStatus(t *testing.T) {
	if !strings.Contains(FormatStatus(nil), "No scan") {
		t.Error("nil run should say no scan yet")
	}
	msg := FormatStatus(sampleRun(true))
	for _, want := range []string{"Tickers: 5", "BUY: 2", "NO_DATA: 0", "Duration: 5s"} {
		if !strings.Contains(msg, want) {
			t.Errorf("status missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatCategory_Empty(t *testing.T) {
	if got := FormatCategory(model.CategoryBuy, nil); !strings.Contains(got, "none") {
		t.Errorf("got %q", got)
	}
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("0123456789\n", 10)
	parts := splitMessage(text, 25)
	if strings.Join(parts, "") != text {
		t.Fatal("split lost content")
	}
	for _, p := range parts {
		if len(p) > 25 {
			t.Errorf("part too long: %d", len(p))
		}
	}
	if got := splitMessage("short", 25); len(got) != 1 {
		t.Errorf("short message split into %d", len(got))
	}
}

type fakeTelegram struct {
	mu       sync.Mutex
	failures int
	texts    []string
}

func (f *fakeTelegram) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failures > 0 {
			f.failures--
			http.Error(w, `{"ok":false}`, http.StatusTooManyRequests)
			return
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if payload["chat_id"] != "42" || payload["parse_mode"] != "HTML" {
			t.Errorf("payload = %v", payload)
		}
		f.texts = append(f.texts, payload["text"])
		w.Write([]byte(`{"ok":true}`))
	}
}

func TestTelegramNotifier_SendWithRetry(t *testing.T) {
	fake := &fakeTelegram{failures: 1}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL

	if err := tn.SendWithRetry(context.Background(), "hello", 2); err != nil {
		t.Fatalf("SendWithRetry: %v", err)
	}
	if len(fake.texts) != 1 || fake.texts[0] != "hello" {
		t.Errorf("delivered = %v", fake.texts)
	}
}

func TestTelegramNotifier_SendError(t *testing.T) {
	fake := &fakeTelegram{failures: 5}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL
	err := tn.Send("x")
	if err == nil || !strings.Contains(err.Error(), "status 429") {
		t.Errorf("err = %v", err)
	}
}

func TestDispatch_FiltersChat(t *testing.T) {
	fake := &fakeTelegram{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	tn := NewTelegramNotifier("TOKEN", "42", "")
	tn.APIBase = srv.URL

	var raw = `[
		{"update_id": 10, "message": {"text": " /status ", "chat": {"id": 42}}},
		{"update_id": 11, "message": {"text": "/scan", "chat": {"id": 7}}},
		{"update_id": 12}
	]`
	var updates []telegramUpdate
	if err := json.Unmarshal([]byte(raw), &updates); err != nil {
		t.Fatal(err)
	}

	var seen []string
	next := tn.dispatch(updates, 0, func(cmd string) string {
		seen = append(seen, cmd)
		return "ok " + cmd
	})
	if next != 13 {
		t.Errorf("next offset = %d, want 13", next)
	}
	if len(seen) != 1 || seen[0] != "/status" {
		t.Errorf("handled = %v", seen)
	}
	if len(fake.texts) != 1 || fake.texts[0] != "ok /status" {
		t.Errorf("replies = %v", fake.texts)
	}
}

func TestSplitMessage_KeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("🟢", 10) // 4 bytes each, no newline
	parts := splitMessage(text, 10)
	if strings.Join(parts, "") != text {
		t.Fatal("split lost content")
	}
	for _, p := range parts {
		if !utf8.ValidString(p) {
			t.Errorf("part %q is not valid UTF-8", p)
		}
		if len(p) > 10 {
			t.Errorf("part too long: %d", len(p))
		}
	}
}
